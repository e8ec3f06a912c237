package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/imgutils/internal/config"
)

// cmdArgs 是三个子命令共用的解析结果；各子命令只接受自己的那部分参数。
type cmdArgs struct {
	Dirs []string
	CLI  config.CLIArgs

	Yes     bool
	Serve   bool
	Verbose bool
}

// flagSpec 描述子命令接受的参数：带值参数与布尔参数分开。
// maxDir 为 0 表示不限制目录个数（对比命令的个数由 host.ResolveComparison 统一报错）。
type flagSpec struct {
	values map[string]bool
	bools  map[string]bool
	maxDir int
}

var (
	compareFlags = flagSpec{
		values: map[string]bool{"addr": true},
		bools:  map[string]bool{"verbose": true},
	}
	previewFlags = flagSpec{
		values: map[string]bool{"addr": true},
		bools:  map[string]bool{"verbose": true},
		maxDir: 1,
	}
	renameFlags = flagSpec{
		values: map[string]bool{"addr": true, "prefix": true, "postfix": true, "pad": true, "order": true, "start": true},
		bools:  map[string]bool{"apply": true, "yes": true, "strict": true, "serve": true, "verbose": true},
		maxDir: 1,
	}
)

func parseArgs(args []string, spec flagSpec) (cmdArgs, error) {
	ca := cmdArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "-v" {
			a = "--verbose"
		}
		if !strings.HasPrefix(a, "--") {
			if strings.HasPrefix(a, "-") && a != "-" {
				return cmdArgs{}, fmt.Errorf("未知参数 %q", a)
			}
			if spec.maxDir > 0 && len(ca.Dirs) >= spec.maxDir {
				return cmdArgs{}, fmt.Errorf("最多只能指定 %d 个目录，多余的是 %q", spec.maxDir, a)
			}
			ca.Dirs = append(ca.Dirs, a)
			continue
		}

		name, val, hasVal := strings.Cut(strings.TrimPrefix(a, "--"), "=")
		switch {
		case spec.values[name]:
			if !hasVal {
				if i+1 >= len(args) {
					return cmdArgs{}, fmt.Errorf("--%s 需要一个值", name)
				}
				i++
				val = args[i]
			}
			if err := ca.setValue(name, val); err != nil {
				return cmdArgs{}, err
			}
		case spec.bools[name]:
			b := true
			if hasVal {
				switch val {
				case "true":
				case "false":
					b = false
				default:
					return cmdArgs{}, fmt.Errorf("--%s 只能是 true 或 false，实际是 %q", name, val)
				}
			}
			ca.setBool(name, b)
		default:
			return cmdArgs{}, fmt.Errorf("未知参数 %q", a)
		}
	}
	return ca, nil
}

func (ca *cmdArgs) setValue(name, val string) error {
	switch name {
	case "addr":
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("--addr 不能为空")
		}
		ca.CLI.Addr, ca.CLI.AddrSet = val, true
	case "prefix":
		ca.CLI.Prefix, ca.CLI.PrefixSet = val, true
	case "postfix":
		ca.CLI.Postfix, ca.CLI.PostfixSet = val, true
	case "pad":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("--pad 必须是整数，实际是 %q", val)
		}
		ca.CLI.Padding, ca.CLI.PaddingSet = n, true
	case "order":
		switch val {
		case "asc", "desc":
		default:
			return fmt.Errorf("--order 只能是 asc 或 desc，实际是 %q", val)
		}
		ca.CLI.Order, ca.CLI.OrderSet = val, true
	case "start":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("--start 必须是整数，实际是 %q", val)
		}
		ca.CLI.Start, ca.CLI.StartSet = n, true
	}
	return nil
}

func (ca *cmdArgs) setBool(name string, v bool) {
	switch name {
	case "apply":
		ca.CLI.Apply, ca.CLI.ApplySet = v, true
	case "strict":
		ca.CLI.Strict, ca.CLI.StrictSet = v, true
	case "yes":
		ca.Yes = v
	case "serve":
		ca.Serve = v
	case "verbose":
		ca.Verbose = v
	}
}
