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

package llmclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleepManager() *RetryManager {
	return &RetryManager{sleep: func(time.Duration) {}, rand01: func() float64 { return 0.5 }}
}

func TestClassify_RateLimitStatus(t *testing.T) {
	class, retryable := Classify(&StatusError{StatusCode: http.StatusTooManyRequests, Err: errors.New("429")})
	assert.Equal(t, ClassRateLimit, class)
	assert.True(t, retryable)
}

func TestClassify_4xxOtherThan429NotRetryable(t *testing.T) {
	class, retryable := Classify(&StatusError{StatusCode: http.StatusBadRequest, Err: errors.New("bad request")})
	assert.Equal(t, ClassDefault, class)
	assert.False(t, retryable)
}

func TestClassify_5xxIsServerError(t *testing.T) {
	class, retryable := Classify(&StatusError{StatusCode: http.StatusBadGateway, Err: errors.New("502")})
	assert.Equal(t, ClassServerError, class)
	assert.True(t, retryable)
}

func TestClassify_TimeoutMessage(t *testing.T) {
	class, retryable := Classify(errors.New("context deadline exceeded"))
	assert.Equal(t, ClassTimeout, class)
	assert.True(t, retryable)
}

func TestRetryManager_SucceedsWithoutRetry(t *testing.T) {
	m := noSleepManager()
	calls := 0
	err := m.Do(context.Background(), "op", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryManager_RetriesUpToClassBudgetThenFails(t *testing.T) {
	m := noSleepManager()
	calls := 0
	err := m.Do(context.Background(), "op", func() error {
		calls++
		return &StatusError{StatusCode: http.StatusBadGateway, Err: errors.New("502")}
	})
	require.Error(t, err)
	var rerr *RetryableError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ClassServerError, rerr.Class)
	// server_error budget is 2 retries -> 3 total attempts
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, rerr.Attempts)
}

func TestRetryManager_NonRetryableFailsImmediately(t *testing.T) {
	m := noSleepManager()
	calls := 0
	err := m.Do(context.Background(), "op", func() error {
		calls++
		return &StatusError{StatusCode: http.StatusBadRequest, Err: errors.New("bad request")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	var rerr *RetryableError
	assert.False(t, errors.As(err, &rerr))
}

func TestRetryManager_SucceedsAfterTransientFailures(t *testing.T) {
	m := noSleepManager()
	calls := 0
	err := m.Do(context.Background(), "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryManager_HonorsRetryAfterOnRateLimit(t *testing.T) {
	var slept time.Duration
	m := &RetryManager{
		sleep:  func(d time.Duration) { slept = d },
		rand01: func() float64 { return 0.5 },
	}
	calls := 0
	err := m.Do(context.Background(), "op", func() error {
		calls++
		if calls == 1 {
			return &StatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 17 * time.Second, Err: errors.New("429")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 17*time.Second, slept)
}

func TestDelayFor_ClampsToMaxDelay(t *testing.T) {
	m := &RetryManager{sleep: func(time.Duration) {}, rand01: func() float64 { return 0.5 }}
	d := m.delayFor(policyTable[ClassRateLimit], 10) // 5s * 2^10 would blow past maxDelay
	assert.LessOrEqual(t, d, maxDelay)
}

func TestDelayFor_AppliesJitterRange(t *testing.T) {
	policy := policyTable[ClassDefault]
	mLow := &RetryManager{rand01: func() float64 { return 0 }}
	mHigh := &RetryManager{rand01: func() float64 { return 1 }}
	low := mLow.delayFor(policy, 0)
	high := mHigh.delayFor(policy, 0)
	assert.InDelta(t, float64(policy.baseDelay)*0.75, float64(low), float64(time.Millisecond))
	assert.InDelta(t, float64(policy.baseDelay)*1.25, float64(high), float64(time.Millisecond))
}
