package nyxpatcher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpTemplateIncludesHelpURL(t *testing.T) {
	t.Setenv("NYXPATCHER_TEST", "true")

	cmd := Command()

	assert.Contains(t, cmd.HelpTemplate(), "REPL_HELP_URL")
}

func TestCommandUsageTemplateUsesWrappedFlags(t *testing.T) {
	t.Setenv("NYXPATCHER_TEST", "true")

	cmd := Command()
	assert.Contains(t, cmd.UsageTemplate(), ".FlagUsagesWrapped")
}

func TestCommandHelpHandlesUnknownTopic(t *testing.T) {
	t.Setenv("NYXPATCHER_TEST", "true")

	cmd := Command()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"help", "nope"})

	err := cmd.Execute()
	assert.NoError(t, err)
	assert.NotEmpty(t, stderr.String())
}

func TestCommandHelpHandlesKnownTopic(t *testing.T) {
	t.Setenv("NYXPATCHER_TEST", "true")

	cmd := Command()
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetArgs([]string{"help", "version"})

	err := cmd.Execute()
	assert.NoError(t, err)
	assert.NotEmpty(t, stdout.String())
}

func TestCommandRegistersSubcommands(t *testing.T) {
	t.Setenv("NYXPATCHER_TEST", "true")

	cmd := Command()

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "check")
	assert.Contains(t, names, "init")
	assert.Contains(t, names, "version")
}

func TestRootShowsHelpWithoutArguments(t *testing.T) {
	t.Setenv("NYXPATCHER_TEST", "true")

	cmd := Command()
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	assert.NoError(t, err)
	assert.Contains(t, stdout.String(), "app.description")
}
