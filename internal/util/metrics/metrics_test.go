/*
 * Copyright 2024 The TierCache Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metrics

import "testing"

func TestInit(t *testing.T) {
	Init()
	// a second Init must not re-register collectors
	Init()

	if CacheObjectOperations == nil || CacheByteOperations == nil || CacheEvents == nil ||
		CacheObjects == nil || CacheBytes == nil || CacheMaxObjects == nil || CacheMaxBytes == nil ||
		EngineRequestDuration == nil || EngineHitRate == nil {
		t.Error("expected all metric vectors registered")
	}

	// exercising the vectors must not panic
	CacheObjectOperations.WithLabelValues("default", "memory", "get", "hit").Inc()
	CacheObjects.WithLabelValues("default", "memory").Set(1)
	EngineRequestDuration.WithLabelValues("default", "get").Observe(0.001)
	EngineHitRate.WithLabelValues("default").Set(0.5)
}
