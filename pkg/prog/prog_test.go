package prog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"src.nixrepl.dev/pkg/logutil"
	"src.nixrepl.dev/pkg/must"
	. "src.nixrepl.dev/pkg/prog"
	"src.nixrepl.dev/pkg/prog/progtest"
	"src.nixrepl.dev/pkg/testutil"
)

var (
	Test        = progtest.Test
	ThatCommand = progtest.ThatCommand
)

func TestCommonFlagHandling(t *testing.T) {
	Test(t, testProgram{},
		ThatCommand("-bad-flag").
			ExitsWith(2).
			WritesStderrContaining("flag provided but not defined: -bad-flag\nUsage:"),
		// -h is treated as a bad flag
		ThatCommand("-h").
			ExitsWith(2).
			WritesStderrContaining("flag provided but not defined: -h\nUsage:"),

		ThatCommand("-help").
			WritesStdoutContaining("Usage: nixrepl [flags] [command] [args]"),
	)
}

func TestLogFlag(t *testing.T) {
	dir := testutil.TempDir(t)
	logPath := filepath.Join(dir, "log")
	t.Cleanup(func() { logutil.SetOutputFile("") })

	logger := logutil.GetLogger("[test] ")
	Test(t, testProgram{run: func() { logger.Println("hello from test") }},
		ThatCommand("-log", logPath).DoesNothing(),
	)

	if content := must.ReadFileString(logPath); !strings.Contains(content, "hello from test") {
		t.Errorf("log file content %q, want it to contain message", content)
	}
}

func TestComposite(t *testing.T) {
	Test(t,
		Composite(testProgram{nextProgram: true}, testProgram{writeOut: "program 2"}),
		ThatCommand().WritesStdout("program 2"),
	)
}

func TestComposite_NoSuitableSubprogram(t *testing.T) {
	Test(t,
		Composite(testProgram{nextProgram: true}, testProgram{nextProgram: true}),
		ThatCommand().
			ExitsWith(2).
			WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestComposite_PreferEarlierSubprogram(t *testing.T) {
	Test(t,
		Composite(
			testProgram{writeOut: "program 1"}, testProgram{writeOut: "program 2"}),
		ThatCommand().WritesStdout("program 1"),
	)
}

func TestComposite_SharedJSONFlag(t *testing.T) {
	Test(t,
		Composite(&jsonProgram{}, &jsonProgram{}),
		ThatCommand("-json").WritesStdout("json: true"),
	)
}

func TestComposite_NextProgramCleanups(t *testing.T) {
	cleanup := func(s string) func([3]*os.File) {
		return func(fds [3]*os.File) { fds[1].WriteString(s) }
	}
	Test(t,
		Composite(
			testProgram{returnErr: NextProgram(cleanup("cleanup 1\n"))},
			testProgram{returnErr: NextProgram(cleanup("cleanup 2\n"))},
			testProgram{writeOut: "program 3\n"}),
		ThatCommand().WritesStdout("program 3\ncleanup 2\ncleanup 1\n"),
	)
}

func TestNextProgram_Alone(t *testing.T) {
	Test(t,
		testProgram{returnErr: NextProgram()},
		ThatCommand().
			ExitsWith(2).
			WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestBadUsageError(t *testing.T) {
	Test(t,
		testProgram{returnErr: BadUsage("lorem ipsum")},
		ThatCommand().ExitsWith(2).WritesStderrContaining("lorem ipsum\nUsage:"),
	)
}

func TestExitError(t *testing.T) {
	Test(t, testProgram{returnErr: Exit(3)},
		ThatCommand().ExitsWith(3),
	)
}

func TestExitError_0(t *testing.T) {
	Test(t, testProgram{returnErr: Exit(0)},
		ThatCommand().ExitsWith(0),
	)
}

type testProgram struct {
	nextProgram bool
	writeOut    string
	returnErr   error
	run         func()
}

func (p testProgram) RegisterFlags(*FlagSet) {}

func (p testProgram) Run(fds [3]*os.File, args []string) error {
	if p.nextProgram {
		return ErrNextProgram
	}
	if p.run != nil {
		p.run()
	}
	fds[1].WriteString(p.writeOut)
	return p.returnErr
}

type jsonProgram struct{ json *bool }

func (p *jsonProgram) RegisterFlags(fs *FlagSet) { p.json = fs.JSON() }

func (p *jsonProgram) Run(fds [3]*os.File, args []string) error {
	if *p.json {
		fds[1].WriteString("json: true")
	}
	return nil
}
