// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo is what a 429/503 response tells the caller about when to
// retry, parsed from provider-specific headers.
type RateLimitInfo struct {
	RetryAfter time.Duration
	ResetTime  int64
}

// ParseOpenAIRateLimitHeaders reads OpenAI-style rate limit headers.
func ParseOpenAIRateLimitHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}
	if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	if resetStr := headers.Get("x-ratelimit-reset-requests"); resetStr != "" {
		if resetTime, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			info.ResetTime = resetTime
		}
	}
	return info
}

// StatusFromResponse builds a *llmclient.StatusError-compatible message;
// kept here (string-only) so this package does not import llmclient.
func StatusFromResponse(resp *http.Response, body []byte) error {
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
}
