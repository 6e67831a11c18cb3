package shell

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

var (
	letRegex = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*([-+*/]?=)\s*(.*)$`)
)

// usageError prints an error and help for a builtin.
func usageError(w io.Writer, opts *getopt.Set, err error, usage ...string) int {
	if err != nil {
		fmt.Fprintln(w, err)
	}
	for _, line := range usage {
		fmt.Fprintln(w, line)
	}
	if opts != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
	}
	return StatusUsage
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	switch len(args) {
	case 1:
		args = append(args, s.Variables.Get(EnvHome))
		fallthrough
	case 2:
		if err := s.Directories.Cd(s.Fs, args[1]); err != nil {
			fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
			return StatusFailure
		}
	default:
		fmt.Fprintf(s.Stderr, "%s: too many arguments\n", args[0])
		return StatusFailure
	}

	s.syncDirectoryVars()
	return StatusSuccess
}

// Pushd saves the working directory and changes to a new one.
func Pushd(s *Shell, args []string) int {
	var target string
	switch len(args) {
	case 1:
	case 2:
		target = args[1]
	default:
		fmt.Fprintf(s.Stderr, "%s: too many arguments\n", args[0])
		return StatusFailure
	}

	if err := s.Directories.Push(s.Fs, target); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return StatusFailure
	}

	s.syncDirectoryVars()
	return Dirs(s, []string{"dirs"})
}

// Popd returns to the directory saved by the last pushd.
func Popd(s *Shell, args []string) int {
	if err := s.Directories.Pop(); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return StatusFailure
	}

	s.syncDirectoryVars()
	return Dirs(s, []string{"dirs"})
}

// Dirs prints the directory stack.
func Dirs(s *Shell, args []string) int {
	fmt.Fprintln(s.Stdout, strings.Join(s.Directories.Dirs(), " "))
	return StatusSuccess
}

// Pwd prints the working directory.
func Pwd(s *Shell, args []string) int {
	fmt.Fprintln(s.Stdout, s.Directories.Current())
	return StatusSuccess
}

func (s *Shell) syncDirectoryVars() {
	s.Variables.Set(EnvPWD, s.Directories.Current())
	if prev := s.Directories.Previous(); prev != "" {
		s.Variables.Set(EnvOldPWD, prev)
	}
}

// Let assigns variables. With no arguments it lists them.
//
//	let NAME = VALUE
//	let NAME = A OP B
//	let NAME OP= N
func Let(s *Shell, args []string) int {
	if len(args) == 1 {
		for _, name := range s.Variables.Names() {
			fmt.Fprintf(s.Stdout, "%s = %s\n", name, s.Variables.Get(name))
		}
		return StatusSuccess
	}

	match := letRegex.FindStringSubmatch(strings.Join(args[1:], " "))
	if match == nil {
		fmt.Fprintf(s.Stderr, "%s: expected NAME = VALUE\n", args[0])
		return StatusFailure
	}
	name, op, expression := match[1], match[2], match[3]

	value, err := evaluate(expression)
	if err == nil && op != "=" {
		value, err = arithmetic(s.Variables.Get(name), op[:1], value)
	}
	if err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return StatusFailure
	}

	s.Variables.Set(name, value)
	return StatusSuccess
}

// evaluate computes "A OP B" expressions, anything else is taken literally.
func evaluate(expression string) (string, error) {
	fields := strings.Fields(expression)
	if len(fields) == 3 && len(fields[1]) == 1 && strings.Contains("+-*/", fields[1]) {
		if _, err := strconv.Atoi(fields[0]); err == nil {
			return arithmetic(fields[0], fields[1], fields[2])
		}
	}
	return expression, nil
}

func arithmetic(lhs, op, rhs string) (string, error) {
	a, err := strconv.Atoi(lhs)
	if err != nil {
		return "", fmt.Errorf("%q is not a number", lhs)
	}
	b, err := strconv.Atoi(rhs)
	if err != nil {
		return "", fmt.Errorf("%q is not a number", rhs)
	}

	switch op {
	case "+":
		return strconv.Itoa(a + b), nil
	case "-":
		return strconv.Itoa(a - b), nil
	case "*":
		return strconv.Itoa(a * b), nil
	default:
		if b == 0 {
			return "", fmt.Errorf("division by zero")
		}
		return strconv.Itoa(a / b), nil
	}
}

// Unset removes variables or functions.
func Unset(s *Shell, args []string) int {
	opts := getopt.New()
	functions := opts.Bool('f', "treat NAME as a function")
	opts.Bool('v', "treat NAME as a variable")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		return usageError(s.Stderr, opts, err, "usage: unset [-fv] [NAME...]", "Unset shell values and functions.")
	}

	for _, name := range opts.Args() {
		if *functions {
			delete(s.Functions, name)
		} else {
			s.Variables.Unset(name)
		}
	}

	return StatusSuccess
}

// Echo writes its arguments to stdout.
func Echo(s *Shell, args []string) int {
	opts := getopt.New()
	noNewline := opts.Bool('n', "do not output the trailing newline")
	escapes := opts.Bool('e', "enable interpretation of backslash escapes")

	words := args[1:]
	if err := opts.Getopt(args, nil); err == nil {
		words = opts.Args()
	} else {
		*noNewline, *escapes = false, false
	}

	out := strings.Join(words, " ")
	if *escapes {
		out = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\\`, `\`).Replace(out)
	}
	if !*noNewline {
		out += "\n"
	}

	fmt.Fprint(s.Stdout, out)
	return StatusSuccess
}

// True always succeeds.
func True(s *Shell, args []string) int {
	return StatusSuccess
}

// False always fails.
func False(s *Shell, args []string) int {
	return StatusFailure
}

// Test evaluates a conditional expression.
func Test(s *Shell, args []string) int {
	operands := args[1:]
	if args[0] == "[" {
		if len(operands) == 0 || operands[len(operands)-1] != "]" {
			s.reportSyntaxError(&SyntaxError{"[: missing ]"})
			return StatusUsage
		}
		operands = operands[:len(operands)-1]
	}

	result, err := s.evaluateTest(operands)
	if err != nil {
		s.reportSyntaxError(&SyntaxError{fmt.Sprintf("%s: %v", args[0], err)})
		return StatusUsage
	}
	if result {
		return StatusSuccess
	}
	return StatusFailure
}

func (s *Shell) evaluateTest(operands []string) (bool, error) {
	switch len(operands) {
	case 0:
		return false, nil
	case 1:
		return operands[0] != "", nil
	case 2:
		return s.testUnary(operands[0], operands[1])
	case 3:
		if operands[0] == "!" {
			result, err := s.testUnary(operands[1], operands[2])
			return !result, err
		}
		return testBinary(operands[0], operands[1], operands[2])
	default:
		return false, fmt.Errorf("too many arguments")
	}
}

func (s *Shell) testUnary(op, operand string) (bool, error) {
	switch op {
	case "!":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-z":
		return operand == "", nil
	case "-e", "-f", "-d":
		info, err := s.Fs.Stat(s.Directories.Resolve(operand))
		if err != nil {
			return false, nil
		}
		switch op {
		case "-f":
			return info.Mode().IsRegular(), nil
		case "-d":
			return info.IsDir(), nil
		}
		return true, nil
	default:
		return false, fmt.Errorf("%s: unary operator expected", op)
	}
}

func testBinary(lhs, op, rhs string) (bool, error) {
	switch op {
	case "==", "=":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	}

	a, aErr := strconv.Atoi(lhs)
	b, bErr := strconv.Atoi(rhs)
	numeric := aErr == nil && bErr == nil

	switch op {
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		if !numeric {
			return false, fmt.Errorf("integer expression expected")
		}
	case "<", "<=", ">", ">=":
		if !numeric {
			cmp := strings.Compare(lhs, rhs)
			a, b = cmp, 0
		}
	default:
		return false, fmt.Errorf("%s: binary operator expected", op)
	}

	switch op {
	case "-eq":
		return a == b, nil
	case "-ne":
		return a != b, nil
	case "-lt", "<":
		return a < b, nil
	case "-le", "<=":
		return a <= b, nil
	case "-gt", ">":
		return a > b, nil
	default:
		return a >= b, nil
	}
}

// Fn lists the defined functions.
func Fn(s *Shell, args []string) int {
	var names []string
	for name := range s.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fn := s.Functions[name]
		fmt.Fprintln(s.Stdout, strings.TrimSpace(name+" "+strings.Join(fn.Args, " ")))
	}
	return StatusSuccess
}

func History(s *Shell, args []string) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		return usageError(s.Stderr, opts, err, "Display or manipulate the history list", "Display the history list with line numbers.")
	}

	if *clear {
		s.History = nil
		if s.OnClearHistory != nil {
			s.OnClearHistory()
		}
		return StatusSuccess
	}

	for i, line := range s.History {
		fmt.Fprintf(s.Stdout, "% 5d  %s\n", i, line)
	}
	return StatusSuccess
}

func Help(s *Shell, args []string) int {
	w := s.Stdout
	fmt.Fprintln(w, "flowsh")
	fmt.Fprintln(w, "These shell commands are defined internally.  Type `help' to see this list.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(BuiltinNames(), "\n"))

	return StatusSuccess
}

// Exit quits the shell with the given status, or the last status if none is
// given.
func Exit(s *Shell, args []string) int {
	status := s.previousStatus
	if len(args) > 1 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.Stderr, "%s: %s: numeric argument required\n", args[0], args[1])
			parsed = StatusUsage
		}
		status = parsed
	}

	s.Quit = true
	s.ExitStatus = status
	return status
}

// BuiltinNames lists the builtins in sorted order.
func BuiltinNames() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["pushd"] = ShellBuiltinFunc(Pushd)
	AllBuiltins["popd"] = ShellBuiltinFunc(Popd)
	AllBuiltins["dirs"] = ShellBuiltinFunc(Dirs)
	AllBuiltins["pwd"] = ShellBuiltinFunc(Pwd)
	AllBuiltins["let"] = ShellBuiltinFunc(Let)
	AllBuiltins["unset"] = ShellBuiltinFunc(Unset)
	AllBuiltins["echo"] = ShellBuiltinFunc(Echo)
	AllBuiltins["true"] = ShellBuiltinFunc(True)
	AllBuiltins["false"] = ShellBuiltinFunc(False)
	AllBuiltins["test"] = ShellBuiltinFunc(Test)
	AllBuiltins["["] = ShellBuiltinFunc(Test)
	AllBuiltins["fn"] = ShellBuiltinFunc(Fn)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
