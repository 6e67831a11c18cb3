package shell

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
)

type scriptTestSuite map[string]string

// Run feeds each script through a fresh shell line by line, the way an
// interactive session would, and compares the combined output.
func (sts scriptTestSuite) Run(t *testing.T) {
	t.Helper()

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	for tn, script := range sts {
		t.Run(tn, func(t *testing.T) {
			s, out := newTestShell(t)
			for _, line := range strings.Split(script, "\n") {
				if s.Quit {
					break
				}
				s.OnCommand(line)
			}

			g.Assert(t, tn, out.Bytes())
		})
	}
}

func TestScripts(t *testing.T) {
	cases := scriptTestSuite{
		"echo":   `echo hello   world`,
		"quotes": "let name = flow\necho '$name' \"$name\" $name",
		"if-else": `let x = 5
if test $x -gt 3
  echo big
else
  echo small
end`,
		"else-if": `for n in 1..5
  if test $n -eq 1
    echo one
  else if test $n -eq 2
    echo two
  else if test $n -eq 3
    echo three
  else
    echo many
  end
end`,
		"while": `let i = 0
while test $i -lt 3
  echo i=$i
  let i += 1
end`,
		"for-range": `for n in 1..4; echo $n; end`,
		"for-words": `for w in {a,b} c; echo $w; end`,
		"break": `for i in 1..3
  for j in 1..4
    if test $j -eq 2
      break
    end
    echo $i $j
  end
end`,
		"functions": `fn greet who
  echo hello $who
end
greet world
greet
fn`,
		"syntax-errors": `end
echo after end
else
echo after else
if true
else
else
echo recovered`,
		"and-or": `false && echo no || echo yes
true || echo no && echo also
false; echo $?`,
		"redirect": `echo one > out.txt
echo two >> out.txt
test -f out.txt && echo exists
test -d out.txt || echo not a directory`,
		"dirstack": `pwd
pushd sub
popd
cd sub
pwd
cd -
pwd
popd`,
		"glob": `echo *.txt
echo *.md`,
		"exit": `echo before
exit 3
echo after`,
	}

	cases.Run(t)
}

// ensure the test helper's filesystem matches what the scripts expect
func TestScriptFixture(t *testing.T) {
	s, _ := newTestShell(t)

	for _, path := range []string{"/work/a.txt", "/work/b.txt", "/work/sub"} {
		if ok, _ := afero.Exists(s.Fs, path); !ok {
			t.Fatalf("missing fixture %q", path)
		}
	}

	stdout, stderr := s.Stdout.(*syncWriter), s.Stderr.(*syncWriter)
	if stdout.w.(*bytes.Buffer) != stderr.w.(*bytes.Buffer) || stdout.mu != stderr.mu {
		t.Fatal("expected stdout and stderr to share a buffer and lock")
	}
}
