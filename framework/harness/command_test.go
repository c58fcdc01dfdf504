package harness

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pupperware/cluster-harness/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerCapturesOutputAndExitCode(t *testing.T) {
	var logger framework.CapturingLogger
	r := ExecRunner{Logger: &logger}
	result := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")

	assert.Equal(t, 3, result.ExitCode)
	assert.NoError(t, result.StartErr)
	assert.Contains(t, result.Output, "out")
	assert.Contains(t, result.Output, "err")
	assert.False(t, result.Succeeded())
	require.Error(t, result.Err())
	assert.Contains(t, result.Err().Error(), "exit status 3")

	require.Len(t, logger.Output(), 1)
	assert.Equal(t, `running command: sh -c "echo out; echo err >&2; exit 3"`, logger.Output()[0].Message)
}

func TestExecRunnerTrimsTrailingWhitespace(t *testing.T) {
	result := ExecRunner{}.Run(context.Background(), "sh", "-c", "printf 'healthy  \\n\\n'")
	assert.True(t, result.Succeeded())
	assert.Equal(t, "healthy", result.Output)
	assert.NoError(t, result.Err())
}

func TestExecRunnerUsesDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	result := ExecRunner{Dir: dir, Env: []string{"PW_TEST_VALUE=xyz"}}.
		Run(context.Background(), "sh", "-c", "echo $PW_TEST_VALUE; pwd")
	require.True(t, result.Succeeded())
	assert.Contains(t, result.Output, "xyz")
}

func TestExecRunnerReportsStartFailure(t *testing.T) {
	result := ExecRunner{}.Run(context.Background(), "this-command-does-not-exist-anywhere")
	assert.Equal(t, -1, result.ExitCode)
	require.Error(t, result.StartErr)
	assert.Equal(t, result.StartErr, result.Err())
}

func TestExecRunnerReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	result := ExecRunner{}.Run(ctx, "sleep", "5")
	assert.False(t, result.Succeeded())
	assert.Error(t, result.Err())
}

func TestExecRunnerEchoesFilteredOutput(t *testing.T) {
	var echo bytes.Buffer
	r := ExecRunner{
		Echo:        &echo,
		EchoExclude: []*regexp.Regexp{regexp.MustCompile(`attribute .version. is obsolete`)},
	}
	result := r.Run(context.Background(), "sh", "-c",
		"echo 'the attribute `version` is obsolete'; echo 'Container puppet Started'; printf 'no newline'")
	require.True(t, result.Succeeded())
	assert.Equal(t, "Container puppet Started\nno newline\n", echo.String())
	assert.Contains(t, result.Output, "obsolete")
}

func TestSplitCommand(t *testing.T) {
	name, args, err := SplitCommand("docker compose")
	require.NoError(t, err)
	assert.Equal(t, "docker", name)
	assert.Equal(t, []string{"compose"}, args)

	name, args, err = SplitCommand(`docker-compose --env-file "my env"`)
	require.NoError(t, err)
	assert.Equal(t, "docker-compose", name)
	assert.Equal(t, []string{"--env-file", "my env"}, args)

	_, _, err = SplitCommand("   ")
	assert.Error(t, err)

	_, _, err = SplitCommand(`docker "compose`)
	assert.Error(t, err)
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, `docker exec puppet puppet config set server puppet`,
		FormatCommand("docker", "exec", "puppet", "puppet", "config", "set", "server", "puppet"))
	assert.Equal(t, `psql "--command=SELECT * FROM pg_extension" ""`,
		FormatCommand("psql", "--command=SELECT * FROM pg_extension", ""))
}
