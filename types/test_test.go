package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTestNameHierarchy(t *testing.T) {
	tests := []struct {
		name          string
		testName      string
		expectedDepth int
		expectedPath  []string
	}{
		{
			name:          "empty string",
			testName:      "",
			expectedDepth: 0,
			expectedPath:  []string{},
		},
		{
			name:          "simple test",
			testName:      "TestSimple",
			expectedDepth: 0,
			expectedPath:  []string{"TestSimple"},
		},
		{
			name:          "first level subtest",
			testName:      "TestParent/SubTest",
			expectedDepth: 1,
			expectedPath:  []string{"TestParent", "SubTest"},
		},
		{
			name:          "second level subtest",
			testName:      "TestParent/SubTest/SubSubTest",
			expectedDepth: 2,
			expectedPath:  []string{"TestParent", "SubTest", "SubSubTest"},
		},
		{
			name:          "deep nesting",
			testName:      "TestA/B/C/D/E",
			expectedDepth: 4,
			expectedPath:  []string{"TestA", "B", "C", "D", "E"},
		},
		{
			name:          "trailing slash",
			testName:      "TestParent/SubTest/",
			expectedDepth: 1,
			expectedPath:  []string{"TestParent", "SubTest"},
		},
		{
			name:          "leading slash",
			testName:      "/TestParent/SubTest",
			expectedDepth: 1,
			expectedPath:  []string{"TestParent", "SubTest"},
		},
		{
			name:          "multiple slashes",
			testName:      "TestParent//SubTest",
			expectedDepth: 1,
			expectedPath:  []string{"TestParent", "SubTest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth, path := ParseTestNameHierarchy(tt.testName)
			assert.Equal(t, tt.expectedDepth, depth, "Depth should match")
			assert.Equal(t, tt.expectedPath, path, "Path should match")
		})
	}
}

func TestTestStatus_IsValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.IsValid(), "status %s should be valid", s)
	}
	assert.False(t, TestStatus("unknown").IsValid())
	assert.False(t, TestStatus("").IsValid())
}

func TestTestStatus_IsFailure(t *testing.T) {
	assert.False(t, TestStatusPass.IsFailure())
	assert.True(t, TestStatusFail.IsFailure())
	assert.True(t, TestStatusError.IsFailure())
	assert.False(t, TestStatusSkip.IsFailure())
}

func TestTestCase_Names(t *testing.T) {
	tests := []struct {
		name        string
		tc          TestCase
		wantShort   string
		wantDisplay string
	}{
		{
			name:        "qualified by suite",
			tc:          TestCase{Suite: "math", Name: "math.TestAdd"},
			wantShort:   "TestAdd",
			wantDisplay: "TestAdd",
		},
		{
			name:        "subtest keeps parent",
			tc:          TestCase{Suite: "math", Name: "math.TestAdd/negative"},
			wantShort:   "TestAdd/negative",
			wantDisplay: "TestAdd/negative",
		},
		{
			name:        "not qualified",
			tc:          TestCase{Suite: "pkg/foo", Name: "TestBar"},
			wantShort:   "TestBar",
			wantDisplay: "TestBar",
		},
		{
			name:        "with description",
			tc:          TestCase{Suite: "math", Name: "math.TestAdd", Description: "adds numbers"},
			wantShort:   "TestAdd",
			wantDisplay: "TestAdd: adds numbers",
		},
		{
			name:        "no suite",
			tc:          TestCase{Name: "TestLonely"},
			wantShort:   "TestLonely",
			wantDisplay: "TestLonely",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantShort, tt.tc.ShortName())
			assert.Equal(t, tt.wantDisplay, tt.tc.DisplayName())
		})
	}
}

func TestTestOutcome_HasDetail(t *testing.T) {
	assert.False(t, TestOutcome{}.HasDetail())
	assert.True(t, TestOutcome{Trace: "boom"}.HasDetail())
	assert.True(t, TestOutcome{Output: "hello"}.HasDetail())
}
