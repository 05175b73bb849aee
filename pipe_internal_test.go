package pipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/tensorpipe/element"
)

func TestAssignPads(t *testing.T) {
	pads := element.Pads{Max: element.Request, Template: "src_%d"}
	links := []*link{
		{fromPad: ""},
		{fromPad: "src_1"},
		{fromPad: ""},
		{fromPad: "src_4"},
	}
	out := func(l *link) (*string, *int) { return &l.fromPad, &l.fromNum }
	require.NoError(t, assignPads("t", pads, links, out))

	var names []string
	var nums []int
	for _, l := range links {
		names = append(names, l.fromPad)
		nums = append(nums, l.fromNum)
	}
	assert.Equal(t, []string{"src_0", "src_1", "src_2", "src_4"}, names)
	assert.Equal(t, []int{0, 1, 2, 4}, nums)

	err := assignPads("t", pads, []*link{{fromPad: "sink_0"}}, out)
	assert.ErrorIs(t, err, ErrUnknownPad)
	err = assignPads("t", pads, []*link{{fromPad: "src_-1"}}, out)
	assert.ErrorIs(t, err, ErrUnknownPad)

	single := element.Pads{Max: 1, Template: "src"}
	l := &link{}
	require.NoError(t, assignPads("v", single, []*link{l}, out))
	assert.Equal(t, "src", l.fromPad)
	err = assignPads("v", element.Pads{}, []*link{l}, out)
	assert.ErrorIs(t, err, ErrInvalidLink)
}
