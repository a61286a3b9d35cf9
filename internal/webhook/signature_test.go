package webhook

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func TestVerifyTimestamped(t *testing.T) {
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`)
	sig := signTimestamped(body, "1700000000", testSecret)

	assert.True(t, VerifyTimestamped(body, "1700000000", sig, testSecret))
	assert.False(t, VerifyTimestamped(body, "1700000001", sig, testSecret), "timestamp is part of the signed material")
	assert.False(t, VerifyTimestamped([]byte(`{"type":"PAYMENT_FAILED_WEBHOOK"}`), "1700000000", sig, testSecret))
	assert.False(t, VerifyTimestamped(body, "1700000000", sig, "other"))
	assert.False(t, VerifyTimestamped(body, "", sig, testSecret))
	assert.False(t, VerifyTimestamped(body, "1700000000", "", testSecret))
	assert.False(t, VerifyTimestamped(body, "1700000000", sig, ""))
	assert.False(t, VerifyTimestamped(nil, "", "", ""))
}

func TestTimestampScheme_Verify(t *testing.T) {
	scheme := NewTimestampScheme(testSecret)
	body := []byte(`{"data":{}}`)

	header := func(sig, ts string) http.Header {
		h := http.Header{}
		if sig != "" {
			h.Set(HeaderSignature, sig)
		}
		if ts != "" {
			h.Set(HeaderTimestamp, ts)
		}
		return h
	}
	valid := signTimestamped(body, "42", testSecret)

	tests := []struct {
		name   string
		header http.Header
		want   error
	}{
		{name: "valid", header: header(valid, "42")},
		{name: "missing signature", header: header("", "42"), want: ErrSignatureMissing},
		{name: "missing timestamp", header: header(valid, ""), want: ErrSignatureMissing},
		{name: "wrong signature", header: header("bm9wZQ==", "42"), want: ErrSignatureInvalid},
		{name: "replayed with new timestamp", header: header(valid, "43"), want: ErrSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := scheme.Verify(tt.header, body)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTimestampScheme_EmptySecretIsMissing(t *testing.T) {
	body := []byte(`{}`)
	h := http.Header{}
	h.Set(HeaderSignature, signTimestamped(body, "1", ""))
	h.Set(HeaderTimestamp, "1")

	assert.ErrorIs(t, NewTimestampScheme("").Verify(h, body), ErrSignatureMissing)
}

func signedLegacyBody(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	flat := map[string]string{}
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			flat[k] = val
		case json.Number:
			flat[k] = val.String()
		}
	}
	fields["signature"] = SignSortedFields(flat, testSecret)
	body, err := json.Marshal(fields)
	require.NoError(t, err)
	return body
}

func TestSortedFieldsScheme_Verify(t *testing.T) {
	scheme := NewSortedFieldsScheme(testSecret)
	body := signedLegacyBody(t, map[string]any{
		"order_id":      "order_abc",
		"order_amount":  json.Number("340.5"),
		"order_status":  "PAID",
		"cf_payment_id": "5114911",
	})

	require.NoError(t, scheme.Verify(nil, body))

	var tampered map[string]any
	require.NoError(t, json.Unmarshal(body, &tampered))
	tampered["order_status"] = "FAILED"
	tamperedBody, _ := json.Marshal(tampered)
	assert.ErrorIs(t, scheme.Verify(nil, tamperedBody), ErrSignatureInvalid)
}

func TestSortedFieldsScheme_NumbersSignedInShortestForm(t *testing.T) {
	sig := SignSortedFields(map[string]string{
		"order_amount": "340",
		"order_id":     "order_abc",
		"order_status": "PAID",
		"tip":          "1.5",
	}, testSecret)
	body := []byte(`{"order_id":"order_abc","order_amount":340.00,"order_status":"PAID","tip":1.50,"signature":"` + sig + `"}`)

	assert.NoError(t, NewSortedFieldsScheme(testSecret).Verify(nil, body))
}

func TestSortedFieldsScheme_SkipsNullAndNested(t *testing.T) {
	fields, err := flatFields([]byte(`{"b":"2","a":1.0,"n":null,"obj":{"x":1},"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "ok": "true"}, fields)
}

func TestSortedFieldsScheme_FormBody(t *testing.T) {
	sig := SignSortedFields(map[string]string{"orderId": "order_abc", "txStatus": "SUCCESS"}, testSecret)
	body := []byte("orderId=order_abc&txStatus=SUCCESS&signature=" + url.QueryEscape(sig))

	assert.NoError(t, NewSortedFieldsScheme(testSecret).Verify(nil, body))
}

func TestSortedFieldsScheme_MissingSignature(t *testing.T) {
	scheme := NewSortedFieldsScheme(testSecret)

	assert.ErrorIs(t, scheme.Verify(nil, []byte(`{"order_id":"order_abc"}`)), ErrSignatureMissing)
	assert.ErrorIs(t, scheme.Verify(nil, []byte(``)), ErrSignatureMissing)
	assert.ErrorIs(t, scheme.Verify(nil, []byte(`{not json`)), ErrSignatureMissing)
}

func TestSignSortedFields_OrderIndependent(t *testing.T) {
	a := SignSortedFields(map[string]string{"x": "1", "y": "2"}, testSecret)
	b := SignSortedFields(map[string]string{"y": "2", "x": "1"}, testSecret)
	c := SignSortedFields(map[string]string{"x": "2", "y": "1"}, testSecret)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestNewScheme(t *testing.T) {
	s, err := NewScheme("timestamp", testSecret)
	require.NoError(t, err)
	assert.Equal(t, "timestamp", s.Name())

	s, err = NewScheme("sorted-fields", testSecret)
	require.NoError(t, err)
	assert.Equal(t, "sorted-fields", s.Name())

	_, err = NewScheme("md5", testSecret)
	assert.Error(t, err)
}
