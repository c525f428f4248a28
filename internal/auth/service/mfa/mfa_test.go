package mfa_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/auth/cache"
	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/service/mfa"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingEmail struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (r *recordingEmail) SendEmail(_ context.Context, to, _, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.sent == nil {
		r.sent = map[string]string{}
	}
	r.sent[to] = body
	return nil
}

func newCache(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewWithClient(client, ""), mr
}

func TestFactory(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t)
	f := mfa.NewFactory(
		&mfa.TOTPProvider{},
		mfa.NewSMSProvider(c, mfa.LogSMSSender{Logger: discard}, discard, nil),
		mfa.NewEmailProvider(c, &recordingEmail{}, discard, nil),
	)

	for _, name := range []string{"totp", "TOTP", "Sms", "email", " EMAIL "} {
		p, err := f.Get(name)
		require.NoError(t, err, name)
		require.NotNil(t, p)
	}

	_, err := f.Get("carrier-pigeon")
	require.ErrorIs(t, err, mfa.ErrUnknownProvider)
	require.Equal(t, []string{mfa.TypeTOTP, mfa.TypeSMS, mfa.TypeEmail}, f.Types())
}

// An emailed code verifies once, with any other code rejected.
func TestEmailCodeScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, mr := newCache(t)
	sender := &recordingEmail{}
	p := mfa.NewEmailProvider(c, sender, discard, nil)
	user := domain.User{ID: "u1"}

	ok, err := p.SendCode(ctx, user, "a@x.io", "482913")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, sender.sent["a@x.io"], "482913")

	key := "mfa:email:u1:a@x.io"
	require.True(t, mr.Exists(key))
	require.Equal(t, mfa.EmailCodeTTL, mr.TTL(key))

	ok, err = p.VerifyCode(ctx, user, "a@x.io", "000000")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = p.VerifyCode(ctx, user, "a@x.io", "482913")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, mr.Exists(key), "verified code is removed")

	ok, err = p.VerifyCode(ctx, user, "a@x.io", "482913")
	require.NoError(t, err)
	require.False(t, ok, "codes are single use")
}

func TestConcurrentVerifyAcceptsCodeOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, _ := newCache(t)
	p := mfa.NewEmailProvider(c, &recordingEmail{}, discard, nil)
	user := domain.User{ID: "u3"}

	for range 20 {
		ok, err := p.SendCode(ctx, user, "c@x.io", "482913")
		require.NoError(t, err)
		require.True(t, ok)

		var accepted atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := p.VerifyCode(ctx, user, "c@x.io", "482913")
				if err == nil && ok {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()
		require.EqualValues(t, 1, accepted.Load())
	}
}

func TestSMSCodeExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, mr := newCache(t)
	p := mfa.NewSMSProvider(c, mfa.LogSMSSender{Logger: discard}, discard, nil)
	user := domain.User{ID: "u2"}

	code, err := p.GenerateCode(ctx, user, "+61400000000")
	require.NoError(t, err)
	require.Len(t, code, 6)

	ok, err := p.SendCode(ctx, user, "+61400000000", code)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mfa.SMSCodeTTL, mr.TTL("mfa:sms:u2:+61400000000"))

	mr.FastForward(mfa.SMSCodeTTL + time.Second)

	ok, err = p.VerifyCode(ctx, user, "+61400000000", code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSendCodeDeliveryFailure(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t)
	p := mfa.NewEmailProvider(c, &recordingEmail{err: errors.New("smtp down")}, discard, nil)

	ok, err := p.SendCode(context.Background(), domain.User{ID: "u3"}, "b@x.io", "123456")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSendCodeCacheFailure(t *testing.T) {
	t.Parallel()

	c, mr := newCache(t)
	mr.Close()
	p := mfa.NewEmailProvider(c, &recordingEmail{}, discard, nil)

	ok, err := p.SendCode(context.Background(), domain.User{ID: "u4"}, "c@x.io", "123456")
	require.Error(t, err)
	require.False(t, ok)
}

func TestTOTPProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key, err := mfa.GenerateSecret("identity", "alice")
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	p := &mfa.TOTPProvider{Now: func() time.Time { return now }}
	secret := key.Secret()
	user := domain.User{ID: "u5", MFASecret: &secret}

	code, err := p.GenerateCode(ctx, user, "")
	require.NoError(t, err)
	want, err := totp.GenerateCode(secret, now)
	require.NoError(t, err)
	require.Equal(t, want, code)

	sent, err := p.SendCode(ctx, user, "", code)
	require.NoError(t, err)
	require.True(t, sent)

	ok, err := p.VerifyCode(ctx, user, "", code)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.VerifyCode(ctx, user, "", "abc")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = p.VerifyCode(ctx, domain.User{ID: "u6"}, "", code)
	require.ErrorIs(t, err, mfa.ErrTOTPNotEnrolled)
}

func TestSMTPSenderRetries(t *testing.T) {
	t.Parallel()

	var calls int
	s := mfa.NewSMTPSenderWithTransport(mfa.SMTPConfig{Host: "mail.local", Port: 587, From: "noreply@x.io"}, discard,
		func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			calls++
			require.Equal(t, "mail.local:587", addr)
			require.Equal(t, []string{"a@x.io"}, to)
			require.Contains(t, string(msg), "Subject: hello\r\n")
			if calls < 2 {
				return errors.New("421 try again")
			}
			return nil
		})

	require.NoError(t, s.SendEmail(context.Background(), "a@x.io", "hello", "body"))
	require.Equal(t, 2, calls)

	require.Error(t, s.SendEmail(context.Background(), "a@x.io\r\nBcc: evil@x.io", "hello", "body"))
}
