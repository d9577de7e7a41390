// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package chat

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/net/proxy"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
)

var sessionBucket = []byte("session")
var sessionKey = []byte("data")

// boltSessionStorage persists the MTProto auth key in a single bbolt file,
// keyed by SessionPath. This is the one piece of local state this service
// keeps outside Postgres. This package runs no login flow, so without a
// stored session Dial fails when it resolves the session's own account.
type boltSessionStorage struct {
	db *bbolt.DB
}

func newBoltSessionStorage(path string) (*boltSessionStorage, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("chat: open session store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("chat: init session bucket: %w", err)
	}
	return &boltSessionStorage{db: db}, nil
}

func (s *boltSessionStorage) LoadSession(context.Context) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(sessionBucket).Get(sessionKey)
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}

func (s *boltSessionStorage) StoreSession(_ context.Context, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(sessionKey, data)
	})
}

func (s *boltSessionStorage) Close() error { return s.db.Close() }

// Config configures an MTProtoClient.
type Config struct {
	APIID       int
	APIHash     string
	SessionPath string
	ProxyURL    string // optional, SOCKS5 only
}

// MTProtoClient is the production Client backed by gotd/td.
type MTProtoClient struct {
	client  *telegram.Client
	sender  *message.Sender
	session *boltSessionStorage
	self    Chat
}

// Dial connects the MTProto client with the session stored at SessionPath
// (it performs no login of its own), blocking until the underlying
// connection's background loop is ready to accept API calls. ctx bounds only
// that startup; the returned stop func tears down the connection and the
// session store.
func Dial(ctx context.Context, cfg Config) (*MTProtoClient, func() error, error) {
	session, err := newBoltSessionStorage(cfg.SessionPath)
	if err != nil {
		return nil, nil, err
	}

	opts := telegram.Options{
		SessionStorage: session,
	}

	if cfg.ProxyURL != "" {
		dialer, err := socks5Dialer(cfg.ProxyURL)
		if err != nil {
			session.Close()
			return nil, nil, fmt.Errorf("chat: proxy dialer: %w", err)
		}
		opts.Resolver = dcs.Plain(dcs.PlainOptions{
			Dial: dialer.DialContext,
		})
	}

	client := telegram.NewClient(cfg.APIID, cfg.APIHash, opts)

	runCtx, cancelRun := context.WithCancel(context.WithoutCancel(ctx))
	ready := make(chan error, 1)
	go func() {
		ready <- client.Run(runCtx, func(runCtx context.Context) error {
			<-runCtx.Done()
			return nil
		})
	}()

	if err := client.Ready(ctx); err != nil {
		cancelRun()
		session.Close()
		return nil, nil, fmt.Errorf("chat: waiting for connection: %w", err)
	}

	api := client.API()
	sender := message.NewSender(api)

	self, err := resolveSelf(ctx, api)
	if err != nil {
		cancelRun()
		session.Close()
		return nil, nil, fmt.Errorf("chat: resolve self: %w", err)
	}

	mc := &MTProtoClient{client: client, sender: sender, session: session, self: self}

	stop := func() error {
		cancelRun()
		err := <-ready
		session.Close()
		return err
	}

	return mc, stop, nil
}

func resolveSelf(ctx context.Context, api *tg.Client) (Chat, error) {
	full, err := api.UsersGetFullUser(ctx, &tg.InputUserSelf{})
	if err != nil {
		return Chat{}, err
	}
	return Chat{ID: full.FullUser.ID, Kind: "user"}, nil
}

// ResolveChat resolves chatID — a numeric id, a "@username", or an invite
// link — to a sendable peer.
func (c *MTProtoClient) ResolveChat(ctx context.Context, chatID string) (Chat, error) {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return Chat{ID: id, Kind: "channel"}, nil
	}

	resolved, err := c.sender.Resolve(chatID).AsInputPeer(ctx)
	if err != nil {
		return Chat{}, fmt.Errorf("chat: resolve %q: %w", chatID, err)
	}

	switch p := resolved.(type) {
	case *tg.InputPeerChannel:
		return Chat{ID: p.ChannelID, AccessHash: p.AccessHash, Kind: "channel"}, nil
	case *tg.InputPeerChat:
		return Chat{ID: p.ChatID, Kind: "chat"}, nil
	case *tg.InputPeerUser:
		return Chat{ID: p.UserID, AccessHash: p.AccessHash, Kind: "user"}, nil
	default:
		return Chat{}, fmt.Errorf("chat: unsupported resolved peer type %T", p)
	}
}

// SavedChat returns the session's own account as a pseudo-chat, the
// fallback destination when the configured upload chat can't be resolved.
func (c *MTProtoClient) SavedChat(ctx context.Context) (Chat, error) {
	return c.self, nil
}

// SendVideo uploads path as a streamable video message with caption.
func (c *MTProtoClient) SendVideo(ctx context.Context, target Chat, path, caption string, supportsStreaming bool) (Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return Message{}, fmt.Errorf("chat: open %q: %w", path, err)
	}
	defer f.Close()

	uploaded, err := c.sender.Upload(path)
	if err != nil {
		return Message{}, fmt.Errorf("chat: upload %q: %w", path, err)
	}

	video := message.Video(uploaded).Caption(caption)
	if supportsStreaming {
		video = video.SupportsStreaming()
	}

	sent, err := c.sender.To(peerClass(target)).Media(ctx, video)
	if err != nil {
		return Message{}, fmt.Errorf("chat: send video: %w", err)
	}

	msgID, fileUniqueID := extractVideoResult(sent)
	return Message{ID: msgID, FileUniqueID: fileUniqueID}, nil
}

func peerClass(c Chat) tg.InputPeerClass {
	switch c.Kind {
	case "channel":
		return &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}
	case "chat":
		return &tg.InputPeerChat{ChatID: c.ID}
	default:
		return &tg.InputPeerUser{UserID: c.ID, AccessHash: c.AccessHash}
	}
}

// extractVideoResult pulls the message id out of the updates envelope
// gotd/td returns from a send, and builds the recorded file id as
// "doc<document id>" from the sent document.
func extractVideoResult(updates tg.UpdatesClass) (int, string) {
	msgs := message.ExtractMessages(updates)
	if len(msgs) == 0 {
		return 0, ""
	}
	m, ok := msgs[0].(*tg.Message)
	if !ok {
		return 0, ""
	}
	fileUniqueID := ""
	if doc, ok := m.Media.(*tg.MessageMediaDocument); ok {
		if d, ok := doc.Document.(*tg.Document); ok {
			fileUniqueID = fmt.Sprintf("doc%d", d.ID)
		}
	}
	return m.ID, fileUniqueID
}

// socks5Dialer builds a context-aware SOCKS5 dialer from a
// socks5://[user:pass@]host:port URL, the only proxy scheme the publish
// path needs to support per the TELEGRAM_PROXY_URL contract.
type contextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

func socks5Dialer(proxyURL string) (contextDialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if u.Scheme != "socks5" {
		return nil, fmt.Errorf("unsupported proxy scheme %q, only socks5 is supported", u.Scheme)
	}

	var auth *proxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}

	d, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, err
	}
	if cd, ok := d.(contextDialer); ok {
		return cd, nil
	}
	return contextDialerAdapter{d}, nil
}

// contextDialerAdapter wraps a non-context-aware proxy.Dialer; the SOCKS5
// handshake itself is fast enough that ctx cancellation mid-handshake isn't
// worth plumbing through the golang.org/x/net/proxy package's interface.
type contextDialerAdapter struct {
	d proxy.Dialer
}

func (a contextDialerAdapter) DialContext(_ context.Context, network, addr string) (net.Conn, error) {
	return a.d.Dial(network, addr)
}
