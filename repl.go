package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"latex-parser/internal/check"
	"latex-parser/internal/errors"
	"latex-parser/internal/logger"
	"latex-parser/internal/tex"
)

const (
	promptMain = "tex> "
	promptCont = "...> "
)

const replHelp = `命令:
  :tree :text :html :source :check  切换输出方式
  :policy <strict|warn|silent> 切换未知名称策略
  :packages                   列出已加载的宏包
  :reset                      丢弃本次会话中的定义
  :quit                       退出
未闭合的分组或环境会继续读取下一行, 输入空行强制解析。`

// session is the state of one interactive run
type session struct {
	r   *runner
	ctx *tex.Context
	n   int
}

func newSession(r *runner) (*session, error) {
	s := &session{r: r}
	return s, s.reset()
}

func (s *session) reset() error {
	ctx, err := tex.DefaultContext(s.r.packages...)
	if err != nil {
		return err
	}
	s.ctx = ctx
	return nil
}

// complete offers macro names for a control word being typed at the end of line.
func (s *session) complete(line string) []string {
	i := strings.LastIndexByte(line, '\\')
	if i < 0 {
		return nil
	}
	prefix := line[i+1:]
	if strings.ContainsAny(prefix, " {}[]$") {
		return nil
	}
	var out []string
	for _, name := range s.ctx.MacroNames() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, line[:i+1]+name)
		}
	}
	sort.Strings(out)
	return out
}

// command runs a ":" command; it reports false when the session should end.
func (s *session) command(line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":quit", ":q", ":exit":
		return false
	case ":tree":
		s.r.mode = modeTree
	case ":text":
		s.r.mode = modeText
	case ":html":
		s.r.mode = modeHTML
	case ":source":
		s.r.mode = modeSource
	case ":check":
		s.r.mode = modeCheck
	case ":policy":
		if len(fields) < 2 {
			fmt.Fprintln(s.r.out, s.r.policy)
			break
		}
		p, err := tex.ParsePolicy(fields[1])
		if err != nil {
			fmt.Fprintf(s.r.errOut, "错误: %v\n", err)
			break
		}
		s.r.policy = p
	case ":packages":
		fmt.Fprintln(s.r.out, strings.Join(s.ctx.Packages(), " "))
	case ":reset":
		if err := s.reset(); err != nil {
			fmt.Fprintf(s.r.errOut, "错误: %v\n", err)
		}
	case ":help", ":h":
		fmt.Fprintln(s.r.out, replHelp)
	default:
		fmt.Fprintln(s.r.errOut, "未知命令, 输入 :help 查看帮助")
	}
	return true
}

// eval parses one input. The session context keeps definitions and loaded
// packages from earlier inputs.
func (s *session) eval(code string) (tex.Root, error) {
	s.n++
	return tex.Parse(code,
		tex.WithContext(s.ctx),
		tex.WithPolicy(s.r.policy),
		tex.WithName(fmt.Sprintf("input%d", s.n)),
		tex.WithTrace(s.r.trace))
}

func (s *session) print(code string, root tex.Root) {
	if s.r.mode == modeCheck {
		if off := check.Mismatch(code, root.Source()); off >= 0 {
			fmt.Fprintf(s.r.errOut, "重建不一致, 位置 %s\n", errors.PosAt(code, off))
			return
		}
		fmt.Fprintf(s.r.out, "ok (%d elements)\n", countElements(root))
		return
	}
	out, err := s.r.render(root)
	if err != nil {
		fmt.Fprintf(s.r.errOut, "错误: %v\n", err)
		return
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	fmt.Fprint(s.r.out, out)
}

// lineReader is the part of liner.State used by readInput
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// readInput reads lines until they form a complete input. An empty line
// ends an incomplete input early so that its error can be shown.
func (s *session) readInput(ln lineReader) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			return "", true
		}
		if err != nil {
			if b.Len() > 0 && err == io.EOF {
				return b.String(), true
			}
			return "", false
		}
		if b.Len() > 0 {
			if strings.TrimSpace(line) == "" {
				return b.String(), true
			}
			b.WriteByte('\n')
		}
		b.WriteString(line)

		code := b.String()
		if strings.HasPrefix(strings.TrimSpace(code), ":") {
			return code, true
		}
		if _, err := tex.Parse(code, tex.WithContext(s.ctx.Copy()), tex.WithPolicy(tex.Silent)); !errors.IsIncomplete(err) {
			return code, true
		}
	}
}

// loop reads and evaluates inputs until the reader is exhausted.
func (s *session) loop(ln lineReader, onInput func(string)) {
	for {
		code, ok := s.readInput(ln)
		if !ok {
			return
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if !s.command(trimmed) {
				return
			}
			continue
		}
		if onInput != nil {
			onInput(code)
		}
		root, err := s.eval(code)
		if err != nil {
			fmt.Fprintln(s.r.errOut, errors.Render(err, "<input>", code))
			continue
		}
		s.print(code, root)
	}
}

// repl runs the interactive mode with history kept in historyPath.
func (r *runner) repl(historyPath string, historySize int) int {
	s, err := newSession(r)
	if err != nil {
		fmt.Fprintf(r.errOut, "错误: %v\n", err)
		return 1
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(s.complete)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			var buf bytes.Buffer
			if _, err := ln.WriteHistory(&buf); err != nil {
				return
			}
			if err := os.MkdirAll(filepath.Dir(historyPath), 0755); err != nil {
				logger.Warn("cannot create history directory", logger.Err(err))
				return
			}
			f, err := os.Create(historyPath)
			if err != nil {
				logger.Warn("cannot save history", logger.Err(err))
				return
			}
			defer f.Close()
			_ = writeHistory(f, buf.Bytes(), historySize)
		}()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(r.out, "latex-parser 交互模式, 输入 :help 查看帮助")
	}

	s.loop(ln, func(code string) {
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	})
	fmt.Fprintln(r.out)
	return 0
}
