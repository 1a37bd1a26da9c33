package fuse

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

func getProcArgs(pid uint32) ([]string, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, err
	}
	return proc.CmdlineSlice()
}

func getCmdline(pid uint32) string {
	args, err := getProcArgs(pid)
	if err != nil {
		return ""
	}

	return strings.Join(args, " ")
}

func getExePath(pid uint32) (string, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return proc.Exe()
}

// validateCmdlineExe reports whether argv[0] of pid names its real executable,
// so that a process cannot pass an allowed_cmds check by rewriting argv[0].
func validateCmdlineExe(pid uint32) bool {
	args, err := getProcArgs(pid)
	if err != nil || len(args) == 0 || args[0] == "" {
		return false
	}

	exePath, err := getExePath(pid)
	if err != nil {
		return false
	}

	cmdArg0 := args[0]

	if exePath == cmdArg0 {
		return true
	}

	if !filepath.IsAbs(cmdArg0) && !strings.ContainsRune(cmdArg0, filepath.Separator) {
		if resolved, err := lookPathFor(pid, cmdArg0); err == nil {
			cmdArg0 = resolved
		}
	}

	realExe, err := os.Stat(exePath)
	if err != nil {
		return false
	}
	realCmd, err := os.Stat(cmdArg0)
	if err != nil {
		return false
	}

	return os.SameFile(realExe, realCmd)
}

// lookPathFor resolves a bare command name against the PATH of pid.
func lookPathFor(pid uint32, name string) (string, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	env, err := proc.Environ()
	if err != nil {
		return "", err
	}

	for _, kv := range env {
		path, ok := strings.CutPrefix(kv, "PATH=")
		if !ok {
			continue
		}
		for _, dir := range filepath.SplitList(path) {
			candidate := filepath.Join(dir, name)
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", os.ErrNotExist
}

// cmdAllowed reports whether pid may open a secret restricted to allowed.
// Entries match argv[0] either exactly or by base name.
func cmdAllowed(pid uint32, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	if !validateCmdlineExe(pid) {
		return false
	}

	args, err := getProcArgs(pid)
	if err != nil || len(args) == 0 {
		return false
	}

	return slices.Contains(allowed, args[0]) || slices.Contains(allowed, filepath.Base(args[0]))
}
