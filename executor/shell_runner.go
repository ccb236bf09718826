package executor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/mohitkumar/conveyor/logger"
	"go.uber.org/zap"
)

const KIND_SHELL = "shell"

// ShellRunner executes a step's command through sh -c. The command sees
// only the step environment plus the host PATH, and may export variables
// to later steps by appending KEY=VALUE lines to the file named by
// CONVEYOR_ENV.
type ShellRunner struct {
	workingDir string
}

func NewShellRunner(workingDir string) *ShellRunner {
	return &ShellRunner{workingDir: workingDir}
}

func (r *ShellRunner) Kind() string {
	return KIND_SHELL
}

func (r *ShellRunner) Run(ctx context.Context, req StepRequest) (StepOutcome, error) {
	command := req.With["command"]
	if command == "" {
		return StepOutcome{}, fmt.Errorf("shell step %s has no command", req.StepName)
	}
	exportsFile, err := os.CreateTemp("", "conveyor-env-*")
	if err != nil {
		return StepOutcome{}, err
	}
	exportsPath := exportsFile.Name()
	exportsFile.Close()
	defer os.Remove(exportsPath)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.workingDir
	cmd.Env = buildEnv(req.Env, exportsPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return StepOutcome{}, fmt.Errorf("failed to start command: %w", err)
	}

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		// kill the whole process group, not just the shell
		if cmd.Process != nil {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-waitDone
		return StepOutcome{}, ctx.Err()
	case err = <-waitDone:
	}

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return StepOutcome{}, fmt.Errorf("failed to execute command: %w", err)
		}
		exitCode = exitErr.ExitCode()
		logger.Debug("shell step exited non zero", zap.String("step", req.StepName), zap.Int("exitCode", exitCode), zap.String("stderr", tail(stderr.Bytes())))
	}

	exports, err := readExports(exportsPath)
	if err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{
		ExitCode: exitCode,
		Exports:  exports,
	}, nil
}

func buildEnv(env map[string]string, exportsPath string) []string {
	result := make([]string, 0, len(env)+2)
	for key, value := range env {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	if _, declared := env["PATH"]; !declared {
		result = append(result, "PATH="+os.Getenv("PATH"))
	}
	result = append(result, "CONVEYOR_ENV="+exportsPath)
	return result
}

func readExports(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	exports := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found || key == "" {
			continue
		}
		exports[key] = value
	}
	return exports, scanner.Err()
}

func tail(output []byte) string {
	const limit = 512
	if len(output) <= limit {
		return string(output)
	}
	return string(output[len(output)-limit:])
}
