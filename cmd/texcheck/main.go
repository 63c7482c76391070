// Check many TeX sources at once: every file must parse and rebuild to its
// exact source text.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"

	"latex-parser/internal/check"
	"latex-parser/internal/config"
	"latex-parser/internal/errors"
	"latex-parser/internal/logger"
	"latex-parser/internal/source"
	"latex-parser/internal/tex"
	"latex-parser/internal/types"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "texcheck - 批量检查 TeX 源码能否解析并无损重建")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "用法:")
	fmt.Fprintln(w, "  texcheck [选项] <目录|文件|通配符>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "选项:")
	fmt.Fprintln(w, "  --workers <N>        并发数 (默认 CPU 核数)")
	fmt.Fprintln(w, "  --strict             未知宏或环境视为错误")
	fmt.Fprintln(w, "  --policy <NAME>      未知名称策略: strict, warn, silent")
	fmt.Fprintln(w, "  --packages <LIST>    预加载的宏包, 逗号分隔")
	fmt.Fprintln(w, "  --encoding <NAME>    源文件编码")
	fmt.Fprintln(w, "  --ext <LIST>         目录中收集的扩展名 (默认 .tex,.sty,.cls,.ltx)")
	fmt.Fprintln(w, "  --cache <PATH>       记录已通过文件的缓存, 内容未变时跳过")
	fmt.Fprintln(w, "  --report <PATH>      失败记录 (JSON, 多次运行累计重试次数)")
	fmt.Fprintln(w, "  --summary <PATH>     写入本次汇总 (JSON)")
	fmt.Fprintln(w, "  --failed-list <PATH> 写入失败文件列表, 每行一个")
	fmt.Fprintln(w, "  --config <PATH>      配置文件路径")
	fmt.Fprintln(w, "  --log-level <NAME>   日志级别")
	fmt.Fprintln(w, "  -q                   只输出失败的文件")
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

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("texcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }

	var (
		workers    = fs.Int("workers", runtime.NumCPU(), "number of files checked at once")
		strict     = fs.Bool("strict", false, "treat unknown names as errors")
		policyName = fs.String("policy", "", "unknown name policy")
		packages   = fs.String("packages", "", "comma separated packages to preload")
		encoding   = fs.String("encoding", "", "source encoding")
		exts       = fs.String("ext", "", "extensions collected from directories")
		cachePath  = fs.String("cache", "", "cache of passing files")
		reportPath = fs.String("report", "", "failure report")
		summary    = fs.String("summary", "", "summary output")
		failedList = fs.String("failed-list", "", "list of failing files")
		configPath = fs.String("config", "", "config file path")
		logLevel   = fs.String("log-level", "", "log level")
		quiet      = fs.Bool("q", false, "only print failures")
	)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return 2
	}

	cm, err := config.NewConfigManager(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	if err := cm.Load(); err != nil {
		fmt.Fprintf(stderr, "错误: 配置无效: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cm.GetConfig().LogLevel = *logLevel
	}
	lc := cm.LoggerConfig()
	lc.Output = stderr
	if err := logger.Init(lc); err != nil {
		fmt.Fprintf(stderr, "错误: 无法初始化日志: %v\n", err)
		return 1
	}
	defer logger.Close()

	opts := check.Options{Workers: *workers}

	name := cm.GetStrictness()
	if *policyName != "" {
		name = *policyName
	}
	if *strict {
		name = "strict"
	}
	if opts.Policy, err = tex.ParsePolicy(name); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 2
	}

	enc := cm.GetEncoding()
	if *encoding != "" {
		enc = *encoding
	}
	if opts.Source.Encoding, err = source.ParseEncoding(enc); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 2
	}
	opts.Packages = append(append([]string(nil), cm.GetPackages()...), splitList(*packages)...)

	files, err := check.Collect(fs.Args(), splitList(*exts)...)
	if err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 2
	}
	logger.Info("sources collected", logger.Int("files", len(files)))

	report, err := errors.NewReport(*reportPath)
	if err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	cache, err := check.OpenCache(*cachePath)
	if err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}

	var mu sync.Mutex
	opts.Progress = func(done, total int, res *types.CheckResult) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case !res.OK:
			loc := res.Path
			if res.Line > 0 {
				loc = fmt.Sprintf("%s:%d:%d", res.Path, res.Line, res.Column)
			}
			fmt.Fprintf(stdout, "[%d/%d] FAIL %s: %s: %s\n", done, total, loc,
				errors.StageDisplayName(errors.Stage(res.Stage)), res.Error)
		case !*quiet && res.Cached:
			fmt.Fprintf(stdout, "[%d/%d] ok   %s (unchanged)\n", done, total, res.Path)
		case !*quiet:
			fmt.Fprintf(stdout, "[%d/%d] ok   %s (%d elements)\n", done, total, res.Path, res.Elements)
		}
	}

	sum := check.New(opts, report, cache).Run(ctx, files)

	status := 0
	if err := cache.Save(); err != nil {
		logger.Warn("cannot save check cache", logger.Err(err))
	}
	if err := report.Save(); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		status = 1
	}
	if *summary != "" {
		if err := writeJSON(*summary, sum); err != nil {
			fmt.Fprintf(stderr, "错误: 无法写入汇总: %v\n", err)
			status = 1
		}
	}
	if *failedList != "" {
		if err := report.ExportFiles(*failedList); err != nil {
			fmt.Fprintf(stderr, "错误: %v\n", err)
			status = 1
		}
	}

	fmt.Fprintf(stdout, "\n共 %d 个文件: 通过 %d (未变 %d), 失败 %d\n", sum.Files, sum.Passed, sum.Cached, sum.Failed)
	if sum.Failed > 0 {
		stages := make([]string, 0, len(sum.ByStage))
		for st := range sum.ByStage {
			stages = append(stages, st)
		}
		sort.Strings(stages)
		for _, st := range stages {
			fmt.Fprintf(stdout, "  %s: %d\n", errors.StageDisplayName(errors.Stage(st)), sum.ByStage[st])
		}
		status = 1
	}
	if sum.Files < len(files) {
		fmt.Fprintf(stdout, "已中断, %d 个文件未检查\n", len(files)-sum.Files)
		status = 130
	}
	return status
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
