package fatsecret

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// signRequest produces the OAuth 1.0 parameter set for a two-legged
// request: consumer key and secret only, no token. The signature is
// HMAC-SHA1 over the standard base string with the token-secret half of
// the key left empty.
func signRequest(method, baseURL string, params url.Values, consumerKey, consumerSecret string) url.Values {
	signed := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			signed.Add(k, v)
		}
	}
	signed.Set("oauth_consumer_key", consumerKey)
	signed.Set("oauth_signature_method", "HMAC-SHA1")
	signed.Set("oauth_timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	signed.Set("oauth_nonce", nonce())
	signed.Set("oauth_version", "1.0")

	signed.Set("oauth_signature", signature(method, baseURL, signed, consumerSecret))
	return signed
}

// signature computes base64(HMAC-SHA1(key, method&url&params)) with both
// the base string parts and every parameter percent-encoded per RFC 5849.
func signature(method, baseURL string, params url.Values, consumerSecret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		vs := append([]string(nil), params[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			pairs = append(pairs, percentEncode(k)+"="+percentEncode(v))
		}
	}

	base := strings.ToUpper(method) + "&" +
		percentEncode(baseURL) + "&" +
		percentEncode(strings.Join(pairs, "&"))

	mac := hmac.New(sha1.New, []byte(percentEncode(consumerSecret)+"&"))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode implements RFC 5849 §3.6 encoding, which is stricter than
// url.QueryEscape about what stays unescaped.
func percentEncode(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// authorizationHeader renders the oauth_* subset of the signed parameter
// set as an OAuth 1.0 Authorization header.
func authorizationHeader(signed url.Values) string {
	fields := []string{
		"oauth_consumer_key",
		"oauth_nonce",
		"oauth_signature",
		"oauth_signature_method",
		"oauth_timestamp",
		"oauth_version",
	}
	parts := make([]string, 0, len(fields))
	for _, k := range fields {
		parts = append(parts, k+`="`+percentEncode(signed.Get(k))+`"`)
	}
	return "OAuth " + strings.Join(parts, ", ")
}

func nonce() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
