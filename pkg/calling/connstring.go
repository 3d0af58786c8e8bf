// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package calling is a minimal Azure Communication Services call
// automation client. There is no Go SDK for the ACS data plane, so the
// shared-key request signing and the createCall operation are
// implemented directly against the REST API.
package calling

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ConnectionString is the parsed form of an ACS connection string:
// endpoint=https://NAME.communication.azure.com/;accesskey=BASE64KEY
type ConnectionString struct {
	Endpoint  string
	AccessKey []byte
}

// ParseConnectionString splits and validates a connection string. Error
// messages never echo the access key; it is live secret material.
func ParseConnectionString(raw string) (ConnectionString, error) {
	var cs ConnectionString
	for _, part := range strings.Split(raw, ";") {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return ConnectionString{}, fmt.Errorf("connection string segment without '='")
		}
		switch strings.ToLower(key) {
		case "endpoint":
			cs.Endpoint = strings.TrimRight(value, "/")
		case "accesskey":
			decoded, err := base64.StdEncoding.DecodeString(value)
			if err != nil {
				return ConnectionString{}, fmt.Errorf("access key is not valid base64")
			}
			cs.AccessKey = decoded
		}
	}
	if cs.Endpoint == "" {
		return ConnectionString{}, fmt.Errorf("connection string has no endpoint segment")
	}
	if len(cs.AccessKey) == 0 {
		return ConnectionString{}, fmt.Errorf("connection string has no accesskey segment")
	}
	if !strings.HasPrefix(cs.Endpoint, "https://") {
		return ConnectionString{}, fmt.Errorf("endpoint %q is not https", cs.Endpoint)
	}
	return cs, nil
}
