package canvasdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const authScheme = "HMACAuth"

// canonicalQuery returns the query parameters as sorted "key=value" pairs joined by "&".
func canonicalQuery(q url.Values) string {
	pairs := make([]string, 0, len(q))
	for k, vals := range q {
		for _, v := range vals {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// signature computes the base64 HMAC-SHA256 request signature expected by the API.
// The signed message is the newline separated list of method, host, content type, content MD5,
// path, sorted query, request date and the secret itself.
func signature(secret, method, host, contentType, contentMD5, path, query, date string) string {
	message := strings.Join([]string{method, host, contentType, contentMD5, path, query, date, secret}, "\n")
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signRequest adds the Date and Authorization headers to req.
func signRequest(req *http.Request, apiKey, apiSecret string, now time.Time) {
	date := now.UTC().Format(http.TimeFormat)
	sig := signature(apiSecret,
		req.Method,
		req.URL.Host,
		req.Header.Get("Content-Type"),
		req.Header.Get("Content-MD5"),
		req.URL.Path,
		canonicalQuery(req.URL.Query()),
		date)
	req.Header.Set("Date", date)
	req.Header.Set("Authorization", authScheme+" "+apiKey+":"+sig)
}
