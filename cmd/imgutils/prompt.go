package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/John-Robertt/imgutils/internal/app/host"
)

var _ host.Prompter = (*linePrompter)(nil)

// linePrompter 在终端里逐行询问：提示写到 out，答案从 in 读一行。
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

// PickFolder 读取一个目录路径；空行或 EOF 视为取消。
func (p *linePrompter) PickFolder(title string) (string, bool, error) {
	fmt.Fprintf(p.out, "%s（直接回车取消）：", title)
	line, err := p.readLine()
	if err != nil {
		return "", false, err
	}
	line = strings.Trim(line, `"'`)
	return line, line != "", nil
}

// Confirm 询问 y/N；只有 y/yes 视为确认。
func (p *linePrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *linePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err == io.EOF {
		return strings.TrimSpace(line), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// termWidth 返回终端列数；取不到时返回 0（不截断）。
func termWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return 0
	}
	return w
}

func pickProgressWriter() (*os.File, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
