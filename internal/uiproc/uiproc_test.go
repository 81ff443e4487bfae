package uiproc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartAndStopSupervisesProcess(t *testing.T) {
	var messages []string
	s := New("sleep", []string{"30"}, false, nil, func(msg string) { messages = append(messages, msg) })

	s.Start()
	require.NotNil(t, s.proc)
	require.Contains(t, messages, "UI started successfully")

	s.Stop()
	require.Contains(t, messages, "UI stopped successfully")
}

func TestHeadlessStartIsNoOp(t *testing.T) {
	var messages []string
	s := New("sleep", []string{"30"}, true, nil, func(msg string) { messages = append(messages, msg) })

	s.Start()
	require.Nil(t, s.proc)
	require.Empty(t, messages)
}

func TestStopWhenNotRunningReports(t *testing.T) {
	var messages []string
	s := New("sleep", []string{"1"}, false, nil, func(msg string) { messages = append(messages, msg) })

	s.Stop()
	require.Contains(t, messages, "UI is not running")
}

func TestStartTwiceReportsAlreadyRunning(t *testing.T) {
	var messages []string
	s := New("sleep", []string{"30"}, false, nil, func(msg string) { messages = append(messages, msg) })
	defer s.Stop()

	s.Start()
	s.Start()
	require.Contains(t, messages, "UI is already running")
	time.Sleep(10 * time.Millisecond)
}
