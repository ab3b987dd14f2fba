package bursar

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"k8s.io/klog/v2"
)

// TokenSource produces the credential sent in the x-auth-hpcbursar header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// MungeTokenSource encodes "user:service" with the munge binary. The bursar
// side decodes the credential and checks that the caller identity matches the
// requested service.
type MungeTokenSource struct {
	MungePath string
	User      string
	Service   string
}

func (s *MungeTokenSource) Token(ctx context.Context) (string, error) {
	payload := s.User + ":" + s.Service
	klog.V(4).InfoS("Generating munge credential", "user", s.User, "service", s.Service)

	cmd := exec.CommandContext(ctx, s.MungePath)
	cmd.Stdin = strings.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("munge credential generation failed: %v, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
