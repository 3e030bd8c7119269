package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
)

func TestRootFlagFallsBackWhenUnset(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("root", "", "")
	c := cli.NewContext(nil, set, nil)
	assert.Equal(t, ".", rootFlag(c, "."))

	set.Set("root", "/proj")
	assert.Equal(t, "/proj", rootFlag(c, "."))
}
