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

package flow

import (
	"time"

	"github.com/kadirpekel/planner/internal/streaming"
	"github.com/kadirpekel/planner/internal/toolkit"
)

func emitStatus(shared *toolkit.Shared, node, phase string) {
	if shared == nil || shared.StreamingSession == nil {
		return
	}
	shared.StreamingSession.Emit(streaming.New(streaming.KindProcessingStatus, shared.SessionID, nowUnix(), map[string]any{
		"node":  node,
		"phase": phase,
	}))
}

func emitError(shared *toolkit.Shared, node, phase string, err error) {
	if shared == nil || shared.StreamingSession == nil {
		return
	}
	shared.StreamingSession.Emit(streaming.New(streaming.KindError, shared.SessionID, nowUnix(), map[string]any{
		"node":  node,
		"phase": phase,
		"error": err.Error(),
	}))
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
