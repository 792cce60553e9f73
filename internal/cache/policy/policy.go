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

// Package policy implements the selectable eviction ranking policies
package policy

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Type enumerates the eviction ranking policies
type Type int

const (
	// TypeLRU ranks entries by ascending last access time
	TypeLRU = Type(iota)
	// TypeLFU ranks entries by ascending access count
	TypeLFU
	// TypeSmart ranks entries by a comparable score combining age, recency,
	// frequency, size and caller-declared priority
	TypeSmart
)

// Names is a map of eviction policy types keyed by name
var Names = map[string]Type{
	"lru":   TypeLRU,
	"lfu":   TypeLFU,
	"smart": TypeSmart,
}

// Values is a map of eviction policy names keyed by type
var Values = make(map[Type]string)

func init() {
	for k, v := range Names {
		Values[v] = k
	}
}

func (t Type) String() string {
	if v, ok := Values[t]; ok {
		return v
	}
	return strconv.Itoa(int(t))
}

// Candidate is the per-entry metadata a Ranker orders eviction candidates by
type Candidate struct {
	Key         string
	Size        int64
	Priority    int64
	AccessCount int64
	CreatedAt   time.Time
	LastAccess  time.Time
}

// Ranker orders eviction candidates in place, most evictable first
type Ranker interface {
	Rank(candidates []Candidate, now time.Time)
}

// Weights tunes the terms of the smart scoring policy
type Weights struct {
	Age       float64
	Idle      float64
	Frequency float64
	Size      float64
	Priority  float64
}

// DefaultWeights returns the default smart scoring weights
func DefaultWeights() Weights {
	return Weights{Age: 1.0, Idle: 2.0, Frequency: 2.0, Size: 0.5, Priority: 1.5}
}

// New returns the Ranker for the provided policy type. The weights are only
// used by the smart policy.
func New(t Type, w Weights) Ranker {
	switch t {
	case TypeLFU:
		return lfu{}
	case TypeSmart:
		return smart{weights: w}
	default:
		return lru{}
	}
}

type lru struct{}

func (lru) Rank(candidates []Candidate, _ time.Time) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccess.Before(candidates[j].LastAccess)
	})
}

type lfu struct{}

func (lfu) Rank(candidates []Candidate, _ time.Time) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].AccessCount != candidates[j].AccessCount {
			return candidates[i].AccessCount < candidates[j].AccessCount
		}
		return candidates[i].LastAccess.Before(candidates[j].LastAccess)
	})
}

type smart struct {
	weights Weights
}

func (s smart) Rank(candidates []Candidate, now time.Time) {
	type scored struct {
		candidate Candidate
		score     float64
	}
	ss := make([]scored, len(candidates))
	for i, c := range candidates {
		ss[i] = scored{c, Score(c, now, s.weights)}
	}
	sort.SliceStable(ss, func(i, j int) bool {
		return ss[i].score > ss[j].score
	})
	for i := range ss {
		candidates[i] = ss[i].candidate
	}
}

// Score computes the smart eviction score for a candidate; a higher score
// means more evictable. Old, idle, rarely-used, large and low-priority
// entries score highest.
func Score(c Candidate, now time.Time, w Weights) float64 {
	age := math.Max(now.Sub(c.CreatedAt).Seconds(), 0)
	idle := math.Max(now.Sub(c.LastAccess).Seconds(), 0)
	// priority is caller-supplied and clamped so a negative value cannot
	// push the log term to NaN
	prio := math.Max(float64(c.Priority), 0)
	return w.Age*math.Log(age+1) +
		w.Idle*math.Log(idle+1) -
		w.Frequency*math.Log(float64(c.AccessCount)+1) +
		w.Size*math.Log(float64(c.Size)+1) -
		w.Priority*math.Log(prio+1)
}
