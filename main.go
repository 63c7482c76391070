package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"latex-parser/internal/check"
	"latex-parser/internal/config"
	"latex-parser/internal/errors"
	"latex-parser/internal/latex"
	"latex-parser/internal/logger"
	"latex-parser/internal/prevnext"
	"latex-parser/internal/source"
	"latex-parser/internal/tex"
)

// outputMode selects what is printed for a parsed source
type outputMode string

const (
	modeSource outputMode = "source"
	modeTree   outputMode = "tree"
	modeText   outputMode = "text"
	modeHTML   outputMode = "html"
	modeCheck  outputMode = "check"
)

// printHelp displays the help information for command line usage.
func printHelp(w io.Writer) {
	fmt.Fprintln(w, "latex-parser - 解析 LaTeX 源码并输出文档树")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "用法:")
	fmt.Fprintln(w, "  latex-parser [选项] [文件...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "选项:")
	fmt.Fprintln(w, "  --file <PATH>       要解析的 .tex 文件 (也可直接写在参数末尾)")
	fmt.Fprintln(w, "  --tree              输出元素树")
	fmt.Fprintln(w, "  --text              输出纯文本")
	fmt.Fprintln(w, "  --html              输出 HTML 片段")
	fmt.Fprintln(w, "  --check             只检查能否解析且源码可无损重建")
	fmt.Fprintln(w, "  --strict            未知宏或环境视为错误")
	fmt.Fprintln(w, "  --policy <NAME>     未知名称策略: strict, warn, silent")
	fmt.Fprintln(w, "  --packages <LIST>   预加载的宏包, 逗号分隔")
	fmt.Fprintln(w, "  --encoding <NAME>   源文件编码 (auto, utf-8, gbk, utf-16le ...)")
	fmt.Fprintln(w, "  --nfc               解析前做 Unicode NFC 归一化")
	fmt.Fprintln(w, "  --output <PATH>     输出写入文件 (保持源文件编码)")
	fmt.Fprintln(w, "  --config <PATH>     配置文件路径")
	fmt.Fprintln(w, "  --log-level <NAME>  日志级别: debug, info, warn, error")
	fmt.Fprintln(w, "  --trace             在 debug 日志中记录每个 token")
	fmt.Fprintln(w, "  -i                  交互模式")
	fmt.Fprintln(w, "  -h, --help          显示帮助信息")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "示例:")
	fmt.Fprintln(w, "  latex-parser --tree paper.tex")
	fmt.Fprintln(w, "  latex-parser --check --strict chapters/*.tex")
	fmt.Fprintln(w, "  cat paper.tex | latex-parser --text")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "说明:")
	fmt.Fprintln(w, "  没有输入文件且标准输入是终端时进入交互模式。")
}

// runner holds the settings shared by file and interactive parsing
type runner struct {
	out      io.Writer
	errOut   io.Writer
	policy   tex.Policy
	packages []string
	mode     outputMode
	trim     bool
	trace    bool
	srcOpts  source.Options
	output   string
}

// run is main without the process exit, so that it can be tested.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("latex-parser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printHelp(stderr) }

	var (
		fileFlag     = fs.String("file", "", "source file to parse")
		treeFlag     = fs.Bool("tree", false, "print the element tree")
		textFlag     = fs.Bool("text", false, "print plain text")
		htmlFlag     = fs.Bool("html", false, "print an HTML fragment")
		checkFlag    = fs.Bool("check", false, "only check that sources parse and round-trip")
		strictFlag   = fs.Bool("strict", false, "treat unknown names as errors")
		policyFlag   = fs.String("policy", "", "unknown name policy")
		packagesFlag = fs.String("packages", "", "comma separated packages to preload")
		encodingFlag = fs.String("encoding", "", "source encoding")
		nfcFlag      = fs.Bool("nfc", false, "normalize sources to NFC")
		outputFlag   = fs.String("output", "", "write output to this file")
		configFlag   = fs.String("config", "", "config file path")
		logLevelFlag = fs.String("log-level", "", "log level")
		traceFlag    = fs.Bool("trace", false, "log every token")
		interactive  = fs.Bool("i", false, "interactive mode")
	)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	cm, err := config.NewConfigManager(*configFlag)
	if err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	if err := cm.Load(); err != nil {
		fmt.Fprintf(stderr, "错误: 配置无效: %v\n", err)
		return 1
	}
	cfg := cm.GetConfig()
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}
	if *traceFlag {
		cfg.LogLevel = "debug"
	}
	lc := cm.LoggerConfig()
	lc.Output = stderr
	if err := logger.Init(lc); err != nil {
		fmt.Fprintf(stderr, "错误: 无法初始化日志: %v\n", err)
		return 1
	}
	defer logger.Close()
	prevnext.SetChecks(cfg.CheckInvariants)

	r := &runner{
		out:     stdout,
		errOut:  stderr,
		mode:    modeSource,
		trim:    cfg.TrimOutput,
		trace:   *traceFlag,
		output:  *outputFlag,
		srcOpts: source.Options{NFC: *nfcFlag},
	}

	policyName := cm.GetStrictness()
	if *policyFlag != "" {
		policyName = *policyFlag
	}
	if *strictFlag {
		policyName = "strict"
	}
	if r.policy, err = tex.ParsePolicy(policyName); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 2
	}

	encName := cm.GetEncoding()
	if *encodingFlag != "" {
		encName = *encodingFlag
	}
	if r.srcOpts.Encoding, err = source.ParseEncoding(encName); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 2
	}

	r.packages = append(r.packages, cm.GetPackages()...)
	r.packages = append(r.packages, splitList(*packagesFlag)...)

	switch {
	case *checkFlag:
		r.mode = modeCheck
	case *treeFlag:
		r.mode = modeTree
	case *textFlag:
		r.mode = modeText
	case *htmlFlag:
		r.mode = modeHTML
	}

	files := fs.Args()
	if *fileFlag != "" {
		files = append([]string{*fileFlag}, files...)
	}
	if len(files) > 1 && r.output != "" {
		fmt.Fprintln(stderr, "错误: --output 只能用于单个输入文件")
		return 2
	}

	if *interactive || (len(files) == 0 && isTerminal(stdin)) {
		return r.repl(cm.GetHistoryFile(), cm.GetHistorySize())
	}
	if len(files) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "错误: 读取标准输入失败: %v\n", err)
			return 1
		}
		f, err := source.Load("<stdin>", data, r.srcOpts)
		if err != nil {
			fmt.Fprintf(stderr, "错误: %v\n", err)
			return 1
		}
		return r.runFile(f)
	}

	status := 0
	for _, path := range files {
		f, err := source.ReadFile(path, r.srcOpts)
		if err != nil {
			fmt.Fprintf(stderr, "错误: %v\n", err)
			status = 1
			continue
		}
		if code := r.runFile(f); code != 0 {
			status = code
		}
	}
	return status
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *runner) options(name string) []tex.Option {
	return []tex.Option{
		tex.WithPolicy(r.policy),
		tex.WithPackages(r.packages...),
		tex.WithName(check.JobName(name)),
		tex.WithTrace(r.trace),
	}
}

// runFile parses one decoded file and prints the result.
func (r *runner) runFile(f *source.File) int {
	root, err := tex.Parse(f.Text, r.options(f.Path)...)
	if err != nil {
		fmt.Fprintln(r.errOut, errors.Render(err, f.Path, f.Text))
		return 1
	}
	if off := check.Mismatch(f.Text, root.Source()); off >= 0 {
		pos := errors.PosAt(f.Text, off)
		fmt.Fprintf(r.errOut, "%s:%s: 重建的源码与原文不一致\n", f.Path, pos)
		return 1
	}

	out, err := r.render(root)
	if err != nil {
		fmt.Fprintf(r.errOut, "错误: %v\n", err)
		return 1
	}
	if r.mode == modeCheck {
		out = fmt.Sprintf("%s: ok (%d elements)\n", f.Path, countElements(root))
	}
	if r.output != "" {
		if err := f.WriteFile(r.output, out); err != nil {
			fmt.Fprintf(r.errOut, "错误: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprint(r.out, out)
	return 0
}

func (r *runner) render(root tex.Root) (string, error) {
	var out string
	switch r.mode {
	case modeTree:
		out = tex.Dump(root)
	case modeText:
		out = latex.PlainText(root) + "\n"
	case modeHTML:
		var err error
		if out, err = latex.HTML(root); err != nil {
			return "", err
		}
	default:
		out = root.Source()
	}
	if r.trim {
		out = strings.TrimSpace(out) + "\n"
	}
	return out, nil
}

func countElements(root tex.Element) int {
	n := 0
	tex.Walk(root, func(tex.Element) bool {
		n++
		return true
	})
	return n
}

// writeHistory keeps the last limit entries of history.
func writeHistory(w io.Writer, history []byte, limit int) error {
	lines := bytes.SplitAfter(history, []byte("\n"))
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	_, err := w.Write(bytes.Join(lines, nil))
	return err
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
