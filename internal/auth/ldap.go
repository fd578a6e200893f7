package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDirectoryEntry     = errors.New("directory entry incomplete")
)

// DirectoryEntry is what a successful directory login yields.
type DirectoryEntry struct {
	Username string
	Email    string
	Name     string
}

type Directory interface {
	Authenticate(ctx context.Context, username, password string) (*DirectoryEntry, error)
}

// LDAPDirectory binds as the user (user@domain) then reads their entry.
type LDAPDirectory struct {
	server string
	baseDN string
	domain string
	logr   *zap.Logger
}

func NewLDAPDirectory(server, baseDN, domain string, logr *zap.Logger) *LDAPDirectory {
	return &LDAPDirectory{server: server, baseDN: baseDN, domain: domain, logr: logr}
}

// StripDomain removes a trailing "@domain" (any case) from username.
func StripDomain(username, domain string) string {
	if domain == "" {
		return username
	}
	re := regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(domain) + `$`)
	return re.ReplaceAllString(username, "")
}

func (d *LDAPDirectory) Authenticate(ctx context.Context, username, password string) (*DirectoryEntry, error) {
	if password == "" {
		return nil, ErrInvalidCredentials
	}
	user := StripDomain(strings.TrimSpace(username), d.domain)

	l, err := ldap.DialURL(d.server, ldap.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}))
	if err != nil {
		d.logr.Error("LDAP dial failed", zap.Error(err), zap.String("server", d.server))
		return nil, fmt.Errorf("ldap connection failed: %w", err)
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil {
			d.logr.Debug("LDAP close error", zap.Error(closeErr))
		}
	}()

	timeout := 30 * time.Second
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) > 0 {
		timeout = time.Until(deadline)
	}
	l.SetTimeout(timeout)

	bindDN := user
	if d.domain != "" {
		bindDN = fmt.Sprintf("%s@%s", user, strings.ToUpper(d.domain))
	}
	if err := l.Bind(bindDN, password); err != nil {
		d.logr.Warn("LDAP bind failed", zap.String("username", user))
		return nil, ErrInvalidCredentials
	}

	req := ldap.NewSearchRequest(
		d.baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1,
		0,
		false,
		fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(user)),
		[]string{"cn", "displayName", "mail"},
		nil,
	)
	sr, err := l.Search(req)
	if err != nil {
		d.logr.Error("LDAP search failed", zap.Error(err), zap.String("username", user))
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if len(sr.Entries) == 0 {
		return nil, fmt.Errorf("%w: %s not found", ErrDirectoryEntry, user)
	}

	return entryFromLDAP(user, sr.Entries[0])
}

func entryFromLDAP(user string, e *ldap.Entry) (*DirectoryEntry, error) {
	mail := e.GetAttributeValue("mail")
	if mail == "" {
		return nil, fmt.Errorf("%w: %s has no mail", ErrDirectoryEntry, user)
	}
	name := e.GetAttributeValue("displayName")
	if name == "" {
		name = e.GetAttributeValue("cn")
	}
	if name == "" {
		name = user
	}
	return &DirectoryEntry{Username: user, Email: mail, Name: name}, nil
}
