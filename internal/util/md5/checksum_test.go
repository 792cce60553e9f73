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

package md5

import "testing"

func TestChecksum(t *testing.T) {

	input := "test"
	expected := "098f6bcd4621d373cade4e832627b4f6"
	result := Checksum(input)
	if expected != result {
		t.Errorf("unexpected checksum for '%s', wanted %s got %s", input, expected, result)
	}

	input = ""
	expected = "d41d8cd98f00b204e9800998ecf8427e"
	result = Checksum(input)
	if expected != result {
		t.Errorf("unexpected checksum for '%s', wanted %s got %s", input, expected, result)
	}
}
