// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package calling

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"time"
)

// sign adds the ACS shared-key authentication headers to the request.
// The body hash goes into x-ms-content-sha256 and the HMAC over
// "VERB\npath?query\ndate;host;bodyhash" signs the whole exchange.
func sign(req *http.Request, key []byte, body []byte, now time.Time) {
	bodyHash := sha256.Sum256(body)
	contentHash := base64.StdEncoding.EncodeToString(bodyHash[:])
	date := now.UTC().Format(http.TimeFormat)

	pathAndQuery := req.URL.Path
	if req.URL.RawQuery != "" {
		pathAndQuery += "?" + req.URL.RawQuery
	}
	stringToSign := req.Method + "\n" + pathAndQuery + "\n" + date + ";" + req.URL.Host + ";" + contentHash

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-content-sha256", contentHash)
	req.Header.Set("Authorization",
		"HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="+signature)
}
