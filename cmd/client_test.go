package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
)

func TestRoomFromArg(t *testing.T) {
	cases := map[string]string{
		"otter-maple-cobalt-brave":                                  "otter-maple-cobalt-brave",
		"  otter-maple  ":                                           "otter-maple",
		"https://meet.interviewpro.dev/r/otter-maple-cobalt-brave":  "otter-maple-cobalt-brave",
		"https://meet.interviewpro.dev/r/otter-maple-cobalt-brave/": "otter-maple-cobalt-brave",
		"http://localhost:8080/r/abc?x=1":                           "abc",
	}
	for in, want := range cases {
		got, err := roomFromArg(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := roomFromArg("")
	assert.ErrorIs(t, err, callerr.ErrNoRoom)

	_, err = roomFromArg("https://meet.interviewpro.dev/")
	assert.Error(t, err)
}
