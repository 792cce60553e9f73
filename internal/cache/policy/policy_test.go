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

package policy

import (
	"math"
	"testing"
	"time"
)

func TestNames(t *testing.T) {
	for name, pt := range Names {
		if pt.String() != name {
			t.Errorf("expected %s got %s", name, pt.String())
		}
	}
	if Type(99).String() != "99" {
		t.Errorf("expected 99 got %s", Type(99).String())
	}
}

func TestLRURank(t *testing.T) {
	now := time.Now()
	candidates := []Candidate{
		{Key: "fresh", LastAccess: now},
		{Key: "stale", LastAccess: now.Add(-time.Hour)},
		{Key: "middle", LastAccess: now.Add(-time.Minute)},
	}

	New(TypeLRU, Weights{}).Rank(candidates, now)

	if candidates[0].Key != "stale" || candidates[1].Key != "middle" || candidates[2].Key != "fresh" {
		t.Errorf("unexpected lru order: %s %s %s",
			candidates[0].Key, candidates[1].Key, candidates[2].Key)
	}
}

func TestLFURank(t *testing.T) {
	now := time.Now()
	candidates := []Candidate{
		{Key: "hot", AccessCount: 100, LastAccess: now},
		{Key: "cold", AccessCount: 1, LastAccess: now},
		{Key: "cold-older", AccessCount: 1, LastAccess: now.Add(-time.Hour)},
	}

	New(TypeLFU, Weights{}).Rank(candidates, now)

	if candidates[0].Key != "cold-older" || candidates[1].Key != "cold" || candidates[2].Key != "hot" {
		t.Errorf("unexpected lfu order: %s %s %s",
			candidates[0].Key, candidates[1].Key, candidates[2].Key)
	}
}

func TestSmartRank(t *testing.T) {
	now := time.Now()
	candidates := []Candidate{
		{Key: "keeper", Size: 100, Priority: 10, AccessCount: 500,
			CreatedAt: now.Add(-time.Minute), LastAccess: now},
		{Key: "victim", Size: 100000, Priority: 0, AccessCount: 0,
			CreatedAt: now.Add(-24 * time.Hour), LastAccess: now.Add(-24 * time.Hour)},
	}

	New(TypeSmart, DefaultWeights()).Rank(candidates, now)

	if candidates[0].Key != "victim" {
		t.Errorf("expected victim ranked most evictable, got %s", candidates[0].Key)
	}
}

func TestScore(t *testing.T) {
	now := time.Now()
	w := DefaultWeights()

	idle := Candidate{CreatedAt: now.Add(-time.Hour), LastAccess: now.Add(-time.Hour)}
	active := Candidate{CreatedAt: now.Add(-time.Hour), LastAccess: now}
	if Score(idle, now, w) <= Score(active, now, w) {
		t.Error("idle candidate should outscore recently accessed candidate")
	}

	frequent := active
	frequent.AccessCount = 1000
	if Score(active, now, w) <= Score(frequent, now, w) {
		t.Error("frequently accessed candidate should score lower")
	}

	prioritized := active
	prioritized.Priority = 100
	if Score(active, now, w) <= Score(prioritized, now, w) {
		t.Error("prioritized candidate should score lower")
	}

	large := active
	large.Size = 1 << 20
	if Score(large, now, w) <= Score(active, now, w) {
		t.Error("larger candidate should score higher")
	}

	// clock skew must not produce negative log arguments
	future := Candidate{CreatedAt: now.Add(time.Hour), LastAccess: now.Add(time.Hour)}
	if s := Score(future, now, w); s != s { // NaN check
		t.Error("score should not be NaN for future timestamps")
	}
}

func TestScoreNegativePriority(t *testing.T) {
	now := time.Now()
	w := DefaultWeights()

	negative := Candidate{CreatedAt: now.Add(-time.Hour), LastAccess: now.Add(-time.Hour), Priority: -5}
	s := Score(negative, now, w)
	if s != s || math.IsInf(s, 0) {
		t.Errorf("expected finite score for negative priority, got %f", s)
	}

	// a negative priority ranks no differently than zero
	zero := negative
	zero.Priority = 0
	if s != Score(zero, now, w) {
		t.Error("negative priority should score as zero priority")
	}
}
