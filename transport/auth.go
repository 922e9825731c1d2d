package transport

import (
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/ssh"
)

// Credentials are the secrets offered during authentication.
type Credentials struct {
	Username   string
	Password   string
	TOTPSecret string
}

func authMethods(creds Credentials, now func() time.Time) []ssh.AuthMethod {
	methods := []ssh.AuthMethod{
		ssh.Password(creds.Password),
		ssh.KeyboardInteractive(answerChallenge(creds, now)),
	}
	return methods
}

// answerChallenge answers keyboard-interactive prompts: verification code
// prompts get a TOTP code when a secret is configured, everything else the
// password.
func answerChallenge(creds Credentials, now func() time.Time) ssh.KeyboardInteractiveChallenge {
	if now == nil {
		now = time.Now
	}
	return func(_, _ string, questions []string, _ []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i, q := range questions {
			if creds.TOTPSecret != "" && isCodePrompt(q) {
				code, err := totp.GenerateCode(creds.TOTPSecret, now())
				if err != nil {
					return nil, err
				}
				answers[i] = code
				continue
			}
			answers[i] = creds.Password
		}
		return answers, nil
	}
}

func isCodePrompt(q string) bool {
	q = strings.ToLower(q)
	for _, marker := range []string{"verification", "code", "otp", "token"} {
		if strings.Contains(q, marker) {
			return true
		}
	}
	return false
}

// isAuthFailure recognizes the client handshake error raised when every
// offered method was rejected.
func isAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "unable to authenticate")
}
