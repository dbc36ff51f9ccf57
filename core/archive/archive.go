// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package archive copies delivered files to a remote host over SFTP.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/mediabot/mediabot/config"
	"github.com/mediabot/mediabot/internal/logging"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// remoteFS is the subset of an SFTP session used for uploads.
type remoteFS interface {
	MkdirAll(p string) error
	Create(p string) (io.WriteCloser, error)
	PosixRename(oldname, newname string) error
	Rename(oldname, newname string) error
	Remove(p string) error
	Close() error
}

type dialFunc func(ctx context.Context, addr string, cfg *ssh.ClientConfig) (remoteFS, error)

// SFTP uploads files into a directory on a remote host.
type SFTP struct {
	cfg  config.Archive
	dial dialFunc
	now  func() time.Time
}

// New validates cfg and returns an uploader for it.
func New(cfg config.Archive) (*SFTP, error) {
	if cfg.Host == "" || cfg.User == "" {
		return nil, errors.New("archive host and user are required")
	}
	return &SFTP{cfg: cfg, dial: dialSFTP, now: time.Now}, nil
}

// Upload copies localPath to <dir>/<basename> on the remote host and returns
// the remote path. The file is written under a temporary name first and then
// renamed into place.
func (s *SFTP) Upload(ctx context.Context, localPath string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = src.Close() }()

	clientCfg, err := s.clientConfig()
	if err != nil {
		return "", err
	}
	fs, err := s.dial(ctx, hostAddr(s.cfg.Host), clientCfg)
	if err != nil {
		return "", fmt.Errorf("connect to %s: %w", s.cfg.Host, err)
	}
	defer func() { _ = fs.Close() }()

	dir := s.cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := fs.MkdirAll(dir); err != nil {
		return "", fmt.Errorf("create remote dir %s: %w", dir, err)
	}

	finalPath := path.Join(dir, filepath.Base(localPath))
	tmpPath := fmt.Sprintf("%s.part-%d", finalPath, s.now().UnixNano())

	dst, err := fs.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create remote file: %w", err)
	}
	if _, err := copyContext(ctx, dst, src); err != nil {
		_ = dst.Close()
		_ = fs.Remove(tmpPath)
		return "", fmt.Errorf("write remote file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = fs.Remove(tmpPath)
		return "", fmt.Errorf("close remote file: %w", err)
	}

	if err := fs.PosixRename(tmpPath, finalPath); err != nil {
		// Servers without posix-rename@openssh.com refuse to overwrite.
		_ = fs.Remove(finalPath)
		if err := fs.Rename(tmpPath, finalPath); err != nil {
			_ = fs.Remove(tmpPath)
			return "", fmt.Errorf("rename into place: %w", err)
		}
	}
	logging.With("archive").Info("archived", "file", finalPath, "host", s.cfg.Host)
	return finalPath, nil
}

func (s *SFTP) clientConfig() (*ssh.ClientConfig, error) {
	hostKeys, err := hostKeyCallback(s.cfg.KnownHosts)
	if err != nil {
		return nil, err
	}
	auth, err := authMethods(s.cfg)
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         10 * time.Second,
	}, nil
}

// hostKeyCallback verifies hosts against a known_hosts file, defaulting to
// ~/.ssh/known_hosts.
func hostKeyCallback(file string) (ssh.HostKeyCallback, error) {
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate known_hosts: %w", err)
		}
		file = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(file)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", file, err)
	}
	return cb, nil
}

// authMethods returns key, password and agent auth in that order, skipping
// the ones that are not configured or available.
func authMethods(cfg config.Archive) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("unable to parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if a := getSSHAgent(); a != nil {
		methods = append(methods, ssh.PublicKeysCallback(a.Signers))
	}
	if len(methods) == 0 {
		return nil, errors.New("no authentication method available (no key file, no password and no ssh agent found)")
	}
	return methods, nil
}

func hostAddr(host string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, "22")
	}
	return host
}

type sftpFS struct {
	*sftp.Client
	conn *ssh.Client
}

func (f *sftpFS) Create(p string) (io.WriteCloser, error) {
	return f.Client.Create(p)
}

func (f *sftpFS) Close() error {
	err := f.Client.Close()
	if f.conn != nil {
		_ = f.conn.Close()
	}
	return err
}

func dialSFTP(ctx context.Context, addr string, cfg *ssh.ClientConfig) (remoteFS, error) {
	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	client := ssh.NewClient(c, chans, reqs)
	sc, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}
	return &sftpFS{Client: sc, conn: client}, nil
}

// copyContext copies until EOF or until ctx is cancelled between chunks.
func copyContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 256*1024)
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		r, rerr := src.Read(buf)
		if r > 0 {
			w, werr := dst.Write(buf[:r])
			n += int64(w)
			if werr != nil {
				return n, werr
			}
		}
		if rerr == io.EOF {
			return n, nil
		}
		if rerr != nil {
			return n, rerr
		}
	}
}
