//go:build linux
// +build linux

package playerctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	t.Parallel()

	md, err := parseMetadata("Song\tArtist | Sessions\tAlbum\tPlaying\t61500000\t240000000")
	require.NoError(t, err)
	require.Equal(t, "Artist | Sessions", md.Artist)
	require.Equal(t, "Playing", md.Status)
	require.Equal(t, 61500*time.Millisecond, md.Position)
	require.Equal(t, 4*time.Minute, md.Duration)
	require.Equal(t, LoopNone, md.Loop)

	md, err = parseMetadata("Stream\t\t\tPaused\t\t")
	require.NoError(t, err)
	require.Zero(t, md.Duration)

	_, err = parseMetadata("only\tthree\tparts")
	require.Error(t, err)
}
