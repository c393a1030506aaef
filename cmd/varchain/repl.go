package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"nickandperla.net/varchain/pkg/varchain"
)

var errQuit = errors.New("quit")

func printBanner(w io.Writer) {
	fmt.Fprintln(w, "varchain REPL (Ctrl+D to exit, :help for commands)")
	fmt.Fprintln(w)
}

const helpText = `Enter a source expression such as a[nai"1"], or a command:
  :values               print every variable
  :json                 print every variable as JSON
  :set ID VALUE         answer a control
  :marker ID X Y        move a marker
  :check ID RESPONSE    check a response against a variable's answer
  :history ID           show stored versions of a variable
  :deps ID              list the identifiers a variable reads
  :seed                 print the seed of the random draws
  :reset                start a new attempt
  :quit                 exit`

func runREPL(s *varchain.Session, in io.Reader, out io.Writer) error {
	printBanner(out)

	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return runBasicREPL(s, in, out)
	}
	return runRawREPL(s, f, out)
}

// runBasicREPL handles non-TTY input (piped input)
func runBasicREPL(s *varchain.Session, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, ">>> ")
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			fmt.Fprintln(out)
			return nil
		}
		line = strings.TrimRight(line, "\r\n")
		if errors.Is(execute(s, line, out), errQuit) {
			return nil
		}
	}
}

// runRawREPL handles TTY input with line editing and history.
func runRawREPL(s *varchain.Session, f *os.File, out io.Writer) error {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(out, "Failed to set raw mode: %v\n", err)
		return runBasicREPL(s, f, out)
	}
	defer term.Restore(fd, oldState)

	ed := &lineEditor{in: f, out: out}
	crlf := &crlfWriter{w: out}
	for {
		fmt.Fprint(out, ">>> ")
		line, eof := ed.readLine()
		if eof {
			fmt.Fprint(out, "\r\n")
			return nil
		}
		if errors.Is(execute(s, line, crlf), errQuit) {
			return nil
		}
	}
}

// execute runs one REPL line. Errors are printed; only errQuit is returned.
func execute(s *varchain.Session, line string, w io.Writer) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, ":") {
		result, err := s.Eval(line)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return nil
		}
		fmt.Fprintln(w, result)
		return nil
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	err := command(s, cmd, rest, w)
	if errors.Is(err, errQuit) {
		return err
	}
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return nil
}

func command(s *varchain.Session, cmd, rest string, w io.Writer) error {
	switch cmd {
	case "help", "h":
		fmt.Fprintln(w, helpText)
	case "quit", "q":
		return errQuit
	case "values":
		printValues(s, w)
	case "json":
		out, err := s.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
	case "seed":
		fmt.Fprintln(w, s.Seed())
	case "reset":
		if err := s.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(w, "new attempt, seed %d\n", s.Seed())
	case "set":
		id, value, ok := strings.Cut(rest, " ")
		if !ok {
			return errors.New("usage: :set ID VALUE")
		}
		return s.SetAnswer(id, value)
	case "marker":
		fields := strings.Fields(rest)
		if len(fields) != 3 {
			return errors.New("usage: :marker ID X Y")
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("marker x: %w", err)
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("marker y: %w", err)
		}
		return s.SetMarker(fields[0], x, y)
	case "check":
		id, response, ok := strings.Cut(rest, " ")
		if !ok {
			return errors.New("usage: :check ID RESPONSE")
		}
		verdict, err := s.Check(id, response)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, formatVerdict(id, verdict))
	case "deps":
		if rest == "" {
			return errors.New("usage: :deps ID")
		}
		deps, err := s.Dependencies(rest)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, strings.Join(deps, " "))
	case "history":
		if rest == "" {
			return errors.New("usage: :history ID")
		}
		entries, err := s.History(rest, 10)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(w, "v%d %s %q\n", e.Version, e.Ts, e.Value)
		}
	default:
		return fmt.Errorf("unknown command :%s (try :help)", cmd)
	}
	return nil
}

// crlfWriter translates newlines for raw mode display.
type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	s := strings.ReplaceAll(string(p), "\n", "\r\n")
	if _, err := io.WriteString(c.w, s); err != nil {
		return 0, err
	}
	return len(p), nil
}

// lineEditor reads lines in raw mode.
type lineEditor struct {
	in      io.Reader
	out     io.Writer
	history []string
}

// readLine reads a line in raw mode. It returns the line and whether EOF
// was encountered.
func (ed *lineEditor) readLine() (string, bool) {
	var line []rune
	cursor := 0
	recall := len(ed.history)
	buf := make([]byte, 1)

	readByte := func() (byte, bool) {
		n, err := ed.in.Read(buf)
		if err != nil || n == 0 {
			return 0, false
		}
		return buf[0], true
	}
	redrawFromCursor := func() {
		fmt.Fprint(ed.out, "\x1b[K")
		fmt.Fprint(ed.out, string(line[cursor:]))
		if cursor < len(line) {
			fmt.Fprintf(ed.out, "\x1b[%dD", len(line)-cursor)
		}
	}
	replaceLine := func(s string) {
		if cursor > 0 {
			fmt.Fprintf(ed.out, "\x1b[%dD", cursor)
		}
		line = []rune(s)
		cursor = 0
		redrawFromCursor()
		if len(line) > 0 {
			fmt.Fprintf(ed.out, "\x1b[%dC", len(line))
		}
		cursor = len(line)
	}
	insert := func(r rune) {
		line = append(line[:cursor], append([]rune{r}, line[cursor:]...)...)
		cursor++
		fmt.Fprint(ed.out, string(r))
		if cursor < len(line) {
			redrawFromCursor()
		}
	}

	for {
		b, ok := readByte()
		if !ok {
			return string(line), true
		}

		switch b {
		case 0x04: // Ctrl+D
			if len(line) == 0 {
				return "", true
			}
			if cursor < len(line) {
				line = append(line[:cursor], line[cursor+1:]...)
				redrawFromCursor()
			}

		case 0x03: // Ctrl+C
			fmt.Fprint(ed.out, "^C\r\n")
			return "", false

		case 0x0d, 0x0a:
			fmt.Fprint(ed.out, "\r\n")
			s := string(line)
			if strings.TrimSpace(s) != "" {
				ed.history = append(ed.history, s)
			}
			return s, false

		case 0x7f, 0x08: // Backspace
			if cursor > 0 {
				cursor--
				line = append(line[:cursor], line[cursor+1:]...)
				fmt.Fprint(ed.out, "\b")
				redrawFromCursor()
			}

		case 0x1b: // ESC [ sequences
			next, ok := readByte()
			if !ok || next != '[' {
				continue
			}
			key, ok := readByte()
			if !ok {
				continue
			}
			switch key {
			case 'A': // Up
				if recall > 0 {
					recall--
					replaceLine(ed.history[recall])
				}
			case 'B': // Down
				if recall < len(ed.history)-1 {
					recall++
					replaceLine(ed.history[recall])
				} else if recall < len(ed.history) {
					recall = len(ed.history)
					replaceLine("")
				}
			case 'C':
				if cursor < len(line) {
					cursor++
					fmt.Fprint(ed.out, "\x1b[C")
				}
			case 'D':
				if cursor > 0 {
					cursor--
					fmt.Fprint(ed.out, "\x1b[D")
				}
			case '3': // Delete: ESC [ 3 ~
				if tilde, ok := readByte(); ok && tilde == '~' && cursor < len(line) {
					line = append(line[:cursor], line[cursor+1:]...)
					redrawFromCursor()
				}
			}

		case 0x01: // Ctrl+A
			if cursor > 0 {
				fmt.Fprintf(ed.out, "\x1b[%dD", cursor)
				cursor = 0
			}

		case 0x05: // Ctrl+E
			if cursor < len(line) {
				fmt.Fprintf(ed.out, "\x1b[%dC", len(line)-cursor)
				cursor = len(line)
			}

		case 0x0b: // Ctrl+K
			if cursor < len(line) {
				line = line[:cursor]
				fmt.Fprint(ed.out, "\x1b[K")
			}

		case 0x15: // Ctrl+U
			if cursor > 0 {
				fmt.Fprintf(ed.out, "\x1b[%dD", cursor)
				line = line[cursor:]
				cursor = 0
				redrawFromCursor()
			}

		default:
			if b >= 0x20 && b < 0x7f {
				insert(rune(b))
			} else if b >= 0x80 {
				utf := []byte{b}
				more := 0
				switch {
				case b&0xE0 == 0xC0:
					more = 1
				case b&0xF0 == 0xE0:
					more = 2
				case b&0xF8 == 0xF0:
					more = 3
				}
				for i := 0; i < more; i++ {
					c, ok := readByte()
					if !ok {
						break
					}
					utf = append(utf, c)
				}
				insert([]rune(string(utf))[0])
			}
		}
	}
}
