package ttylog

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeConversions(t *testing.T) {
	cases := map[string]struct {
		microseconds int64
		seconds      float64
	}{
		"precision": {
			microseconds: 1,
			seconds:      1e-6,
		},
		"negative": {
			microseconds: -631119539e6,
			seconds:      -631119539,
		},
		"positive": {
			microseconds: 631119539e6,
			seconds:      631119539,
		},
		"bigprecise": {
			microseconds: 123456789987654,
			seconds:      123456789.987654,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s2m := secondsToMicroseconds(tc.seconds)
			m2s := microsecondsToSeconds(tc.microseconds)

			// Only allow delta to be to the NS
			assert.InDelta(t, m2s, tc.seconds, float64(time.Nanosecond)/float64(time.Second))
			assert.Equal(t, s2m, tc.microseconds)
		})
	}
}

func TestAsciicastRoundTrip(t *testing.T) {
	clock := time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(500 * time.Millisecond)
		return clock
	}

	cast := &bytes.Buffer{}
	recorder := NewRecorder(FDStdout, NewAsciicastLogSink(cast, 80, 24), now)

	fmt.Fprint(recorder, "hello\r\n")
	fmt.Fprint(recorder, "world\r\n")

	header, err := cast.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, header, `"version":2`)
	assert.Contains(t, header, `"width":80`)

	// Put the header back so the source can consume it.
	src := NewAsciicastLogSource(io.MultiReader(strings.NewReader(header), cast))

	first, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, FDStdout, first.FD)
	assert.Equal(t, "hello\r\n", string(first.Data))
	assert.Equal(t, int64(0), first.TimestampMicros)

	second, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "world\r\n", string(second.Data))
	assert.Equal(t, int64(500000), second.TimestampMicros)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReplayClientOutput(t *testing.T) {
	cast := strings.Join([]string{
		`{"version":2,"width":80,"height":24}`,
		`[0.1,"i","ls\r"]`,
		`[0.2,"o","a.txt\r\n"]`,
		`[0.3,"x","ignored"]`,
		``,
		`[0.4,"o","$ "]`,
		``,
	}, "\n")

	out := &bytes.Buffer{}
	err := Replay(NewAsciicastLogSource(strings.NewReader(cast)), NewRealTimePlayback(0, NewClientOutput(out)))
	require.NoError(t, err)
	assert.Equal(t, "a.txt\r\n$ ", out.String())
}

func TestRecorderSharedSink(t *testing.T) {
	var entries []*Entry
	sink := NewSynchronizedSink(func(e *Entry) error {
		entries = append(entries, e)
		return nil
	})

	clock := func() time.Time { return time.Unix(100, 0) }
	stdin := NewRecorder(FDStdin, sink, clock)
	stdout := NewRecorder(FDStdout, sink, clock)

	var wg sync.WaitGroup
	for _, w := range []io.Writer{stdin, stdout} {
		wg.Add(1)
		go func(w io.Writer) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				fmt.Fprint(w, "x")
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, entries, 100)
	counts := map[FD]int{}
	for _, e := range entries {
		counts[e.FD]++
		assert.Equal(t, int64(100000000), e.TimestampMicros)
	}
	assert.Equal(t, map[FD]int{FDStdin: 50, FDStdout: 50}, counts)
}

func TestRecorderCopiesData(t *testing.T) {
	var got *Entry
	r := NewRecorder(FDStderr, func(e *Entry) error {
		got = e
		return nil
	}, nil)

	buf := []byte("abc")
	n, err := r.Write(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf[0] = 'z'
	assert.Equal(t, "abc", string(got.Data))
	assert.Equal(t, FDStderr, got.FD)
}
