package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gotd/contrib/bg"
	"github.com/gotd/td/session"
	gotd "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
)

// DeviceInfo is reported to Telegram when the connection is established
type DeviceInfo struct {
	Model         string
	SystemVersion string
	AppVersion    string
}

// Options configures a Client
type Options struct {
	Phone   string
	APIID   int
	APIHash string
	Storage session.Storage // Session blob persistence
	Device  DeviceInfo
	Logger  zerolog.Logger

	// Base bounds the lifetime of the background connection. Defaults to
	// context.Background(). Request-scoped contexts must never end up
	// here: the transport outlives the call that established it.
	Base context.Context
}

// Client wraps one account's MTProto connection.
//
// Telegram only lets numeric peer IDs be addressed once their access hash has
// been seen on this connection, so the client keeps an entity cache that every
// dialog or message listing feeds. ResolveEntity for a numeric ID is a pure
// cache lookup; usernames and phone numbers go to the provider directly.
type Client struct {
	opts Options

	cli    *gotd.Client
	api    *tg.Client
	sender *message.Sender
	stop   bg.StopFunc

	mu       sync.Mutex
	entities map[int64]Entity
}

// NewClient creates an unconnected client for one account
func NewClient(opts Options) *Client {
	return &Client{opts: opts}
}

// Phone returns the account phone this client belongs to
func (c *Client) Phone() string {
	return c.opts.Phone
}

// lifetime is the context the background connection runs under
func (c *Client) lifetime() context.Context {
	if c.opts.Base != nil {
		return c.opts.Base
	}
	return context.Background()
}

// Connect establishes the MTProto transport in the background and restores
// the stored session. Idempotent while connected. The transport runs under
// the client's lifetime context, not ctx: pooled connections survive the
// request that created them.
func (c *Client) Connect(ctx context.Context) error {
	if c.stop != nil {
		return nil
	}

	device := gotd.DeviceConfig{
		DeviceModel:   c.opts.Device.Model,
		SystemVersion: c.opts.Device.SystemVersion,
		AppVersion:    c.opts.Device.AppVersion,
	}

	cli := gotd.NewClient(c.opts.APIID, c.opts.APIHash, gotd.Options{
		SessionStorage: c.opts.Storage,
		Device:         device,
	})

	stop, err := bg.Connect(cli, bg.WithContext(c.lifetime()))
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.opts.Phone, err)
	}

	c.cli = cli
	c.api = cli.API()
	c.sender = message.NewSender(c.api)
	c.stop = stop
	c.opts.Logger.Debug().Str("phone", c.opts.Phone).Msg("telegram transport up")
	return nil
}

// Disconnect stops the background connection and drops the entity cache
func (c *Client) Disconnect(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	stop := c.stop
	c.stop = nil
	c.cli = nil
	c.api = nil
	c.sender = nil

	c.mu.Lock()
	c.entities = nil
	c.mu.Unlock()

	return stop()
}

// Authorized reports whether the restored session is signed in
func (c *Client) Authorized(ctx context.Context) (bool, error) {
	status, err := c.cli.Auth().Status(ctx)
	if err != nil {
		return false, fmt.Errorf("auth status %s: %w", c.opts.Phone, err)
	}
	return status.Authorized, nil
}

// SendCode asks Telegram to deliver a login code and returns the code hash
// the follow-up SignIn must present.
func (c *Client) SendCode(ctx context.Context) (string, error) {
	sent, err := c.cli.Auth().SendCode(ctx, c.opts.Phone, auth.SendCodeOptions{})
	if err != nil {
		return "", fmt.Errorf("send code %s: %w", c.opts.Phone, classify(err))
	}
	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return "", fmt.Errorf("send code %s: unexpected response %T", c.opts.Phone, sent)
	}
	return code.PhoneCodeHash, nil
}

// SignIn completes a phone-code login
func (c *Client) SignIn(ctx context.Context, code, codeHash string) error {
	_, err := c.cli.Auth().SignIn(ctx, c.opts.Phone, code, codeHash)
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		// Accounts with 2FA enabled need a cloud password flow this
		// gateway does not implement.
		return fmt.Errorf("sign in %s: two-factor password required: %w", c.opts.Phone, err)
	}
	if err != nil {
		return fmt.Errorf("sign in %s: %w", c.opts.Phone, classify(err))
	}
	return nil
}

// Self returns the entity of the logged-in account
func (c *Client) Self(ctx context.Context) (Entity, error) {
	me, err := c.cli.Self(ctx)
	if err != nil {
		return Entity{}, fmt.Errorf("self %s: %w", c.opts.Phone, err)
	}
	ent := userEntity(me)
	c.remember(ent)
	return ent, nil
}

// ResolveEntity resolves an identifier to a peer. Usernames (with or without
// a leading @) and phone numbers (leading +) are resolved via the provider;
// bare numeric IDs are served from the entity cache and fail with ErrNotFound
// until a listing has warmed it.
func (c *Client) ResolveEntity(ctx context.Context, identifier string) (Entity, error) {
	identifier = strings.TrimSpace(identifier)

	if strings.HasPrefix(identifier, "+") {
		return c.resolvePhone(ctx, identifier)
	}
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		if ent, ok := c.lookup(id); ok {
			return ent, nil
		}
		return Entity{}, fmt.Errorf("%w: id %d not in entity cache", ErrNotFound, id)
	}
	return c.resolveUsername(ctx, strings.TrimPrefix(identifier, "@"))
}

func (c *Client) resolveUsername(ctx context.Context, username string) (Entity, error) {
	peer, err := c.api.ContactsResolveUsername(ctx, username)
	if err != nil {
		return Entity{}, fmt.Errorf("resolve @%s: %w", username, classify(err))
	}
	c.rememberUsers(peer.Users)
	c.rememberChats(peer.Chats)
	return c.entityFromPeer(peer.Peer)
}

func (c *Client) resolvePhone(ctx context.Context, phone string) (Entity, error) {
	peer, err := c.api.ContactsResolvePhone(ctx, phone)
	if err != nil {
		return Entity{}, fmt.Errorf("resolve %s: %w", phone, classify(err))
	}
	c.rememberUsers(peer.Users)
	c.rememberChats(peer.Chats)
	return c.entityFromPeer(peer.Peer)
}

// ListDialogs lists a bounded page of the account's dialogs. Every listing
// also feeds the entity cache, which is what makes numeric-ID resolution work.
func (c *Client) ListDialogs(ctx context.Context, limit int) ([]Dialog, error) {
	resp, err := c.api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		Limit:      limit,
		OffsetPeer: &tg.InputPeerEmpty{},
	})
	if err != nil {
		return nil, fmt.Errorf("list dialogs %s: %w", c.opts.Phone, classify(err))
	}

	var dialogs []tg.DialogClass
	switch d := resp.(type) {
	case *tg.MessagesDialogs:
		c.rememberUsers(d.Users)
		c.rememberChats(d.Chats)
		dialogs = d.Dialogs
	case *tg.MessagesDialogsSlice:
		c.rememberUsers(d.Users)
		c.rememberChats(d.Chats)
		dialogs = d.Dialogs
	default:
		return nil, fmt.Errorf("list dialogs %s: unexpected response %T", c.opts.Phone, resp)
	}

	var out []Dialog
	for _, dc := range dialogs {
		d, ok := dc.(*tg.Dialog)
		if !ok {
			continue
		}
		ent, err := c.entityFromPeer(d.Peer)
		if err != nil {
			continue
		}
		out = append(out, Dialog{
			Entity:      ent,
			Title:       ent.Name,
			UnreadCount: d.UnreadCount,
		})
	}
	return out, nil
}

// ListMessages fetches up to limit messages from the peer, newest first.
// A non-zero offsetDate restricts the fetch to messages older than it.
func (c *Client) ListMessages(ctx context.Context, ent Entity, limit int, offsetDate time.Time) ([]Message, error) {
	req := &tg.MessagesGetHistoryRequest{
		Peer:  inputPeer(ent),
		Limit: limit,
	}
	if !offsetDate.IsZero() {
		req.OffsetDate = int(offsetDate.Unix())
	}

	resp, err := c.api.MessagesGetHistory(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("history %d: %w", ent.ID, classify(err))
	}

	var raw []tg.MessageClass
	switch m := resp.(type) {
	case *tg.MessagesMessages:
		c.rememberUsers(m.Users)
		c.rememberChats(m.Chats)
		raw = m.Messages
	case *tg.MessagesMessagesSlice:
		c.rememberUsers(m.Users)
		c.rememberChats(m.Chats)
		raw = m.Messages
	case *tg.MessagesChannelMessages:
		c.rememberUsers(m.Users)
		c.rememberChats(m.Chats)
		raw = m.Messages
	default:
		return nil, fmt.Errorf("history %d: unexpected response %T", ent.ID, resp)
	}

	var out []Message
	for _, mc := range raw {
		// Service messages (joins, title changes) are not tg.Message
		msg, ok := mc.(*tg.Message)
		if !ok {
			continue
		}
		out = append(out, c.messageFrom(msg))
	}
	return out, nil
}

func (c *Client) messageFrom(msg *tg.Message) Message {
	var senderID int64
	if from, ok := msg.GetFromID(); ok {
		switch p := from.(type) {
		case *tg.PeerUser:
			senderID = p.UserID
		case *tg.PeerChannel:
			senderID = p.ChannelID
		case *tg.PeerChat:
			senderID = p.ChatID
		}
	} else if peer, ok := msg.PeerID.(*tg.PeerChannel); ok {
		// Channel posts carry no FromID; attribute them to the channel
		senderID = peer.ChannelID
	}

	label := ""
	if ent, ok := c.lookup(senderID); ok {
		label = ent.Name
	}
	if label == "" && senderID != 0 {
		label = strconv.FormatInt(senderID, 10)
	}

	return Message{
		ID:          msg.ID,
		Date:        time.Unix(int64(msg.Date), 0).UTC(),
		SenderID:    senderID,
		SenderLabel: label,
		Text:        msg.Message,
		Out:         msg.Out,
	}
}

// SendMessage sends a text message, optionally replying to replyTo, and
// returns the provider-assigned message ID.
func (c *Client) SendMessage(ctx context.Context, ent Entity, text string, replyTo int) (int, error) {
	target := c.sender.To(inputPeer(ent))

	var (
		upd tg.UpdatesClass
		err error
	)
	if replyTo > 0 {
		upd, err = target.Reply(replyTo).Text(ctx, text)
	} else {
		upd, err = target.Text(ctx, text)
	}
	if err != nil {
		return 0, fmt.Errorf("send to %d: %w", ent.ID, classify(err))
	}
	return sentMessageID(upd), nil
}

// sentMessageID digs the assigned message ID out of the update response
func sentMessageID(upd tg.UpdatesClass) int {
	switch u := upd.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID
	case *tg.Updates:
		return messageIDFromUpdates(u.Updates)
	case *tg.UpdatesCombined:
		return messageIDFromUpdates(u.Updates)
	}
	return 0
}

func messageIDFromUpdates(updates []tg.UpdateClass) int {
	for _, uc := range updates {
		if u, ok := uc.(*tg.UpdateMessageID); ok {
			return u.ID
		}
	}
	return 0
}

// MarkRead marks the peer's whole history as read
func (c *Client) MarkRead(ctx context.Context, ent Entity) error {
	if ent.Kind == KindChannel {
		_, err := c.api.ChannelsReadHistory(ctx, &tg.ChannelsReadHistoryRequest{
			Channel: &tg.InputChannel{ChannelID: ent.ID, AccessHash: ent.AccessHash},
		})
		if err != nil {
			return fmt.Errorf("mark read %d: %w", ent.ID, classify(err))
		}
		return nil
	}

	_, err := c.api.MessagesReadHistory(ctx, &tg.MessagesReadHistoryRequest{
		Peer: inputPeer(ent),
	})
	if err != nil {
		return fmt.Errorf("mark read %d: %w", ent.ID, classify(err))
	}
	return nil
}

// Participants lists the members of a group or channel
func (c *Client) Participants(ctx context.Context, ent Entity) ([]Entity, error) {
	switch ent.Kind {
	case KindChannel:
		resp, err := c.api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
			Channel: &tg.InputChannel{ChannelID: ent.ID, AccessHash: ent.AccessHash},
			Filter:  &tg.ChannelParticipantsRecent{},
			Limit:   200,
		})
		if err != nil {
			return nil, fmt.Errorf("participants %d: %w", ent.ID, classify(err))
		}
		p, ok := resp.(*tg.ChannelsChannelParticipants)
		if !ok {
			return nil, fmt.Errorf("participants %d: unexpected response %T", ent.ID, resp)
		}
		c.rememberUsers(p.Users)
		return userEntities(p.Users), nil

	case KindGroup:
		full, err := c.api.MessagesGetFullChat(ctx, ent.ID)
		if err != nil {
			return nil, fmt.Errorf("participants %d: %w", ent.ID, classify(err))
		}
		c.rememberUsers(full.Users)
		return userEntities(full.Users), nil

	default:
		return nil, fmt.Errorf("%w: %d is not a group or channel", ErrNotFound, ent.ID)
	}
}

// ===== entity cache =====

func (c *Client) remember(ent Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entities == nil {
		c.entities = make(map[int64]Entity)
	}
	c.entities[ent.ID] = ent
}

func (c *Client) lookup(id int64) (Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.entities[id]
	return ent, ok
}

func (c *Client) rememberUsers(users []tg.UserClass) {
	for _, uc := range users {
		if u, ok := uc.(*tg.User); ok {
			c.remember(userEntity(u))
		}
	}
}

func (c *Client) rememberChats(chats []tg.ChatClass) {
	for _, cc := range chats {
		switch ch := cc.(type) {
		case *tg.Chat:
			c.remember(Entity{ID: ch.ID, Name: ch.Title, Kind: KindGroup})
		case *tg.Channel:
			c.remember(Entity{
				ID:         ch.ID,
				AccessHash: ch.AccessHash,
				Name:       ch.Title,
				Username:   ch.Username,
				Kind:       KindChannel,
			})
		}
	}
}

func (c *Client) entityFromPeer(peer tg.PeerClass) (Entity, error) {
	var id int64
	switch p := peer.(type) {
	case *tg.PeerUser:
		id = p.UserID
	case *tg.PeerChat:
		id = p.ChatID
	case *tg.PeerChannel:
		id = p.ChannelID
	default:
		return Entity{}, fmt.Errorf("%w: unsupported peer %T", ErrNotFound, peer)
	}
	if ent, ok := c.lookup(id); ok {
		return ent, nil
	}
	return Entity{}, fmt.Errorf("%w: peer %d not in entity cache", ErrNotFound, id)
}

func userEntity(u *tg.User) Entity {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	return Entity{
		ID:         u.ID,
		AccessHash: u.AccessHash,
		Name:       name,
		Username:   u.Username,
		Kind:       KindUser,
	}
}

func userEntities(users []tg.UserClass) []Entity {
	var out []Entity
	for _, uc := range users {
		if u, ok := uc.(*tg.User); ok {
			out = append(out, userEntity(u))
		}
	}
	return out
}

func inputPeer(ent Entity) tg.InputPeerClass {
	switch ent.Kind {
	case KindChannel:
		return &tg.InputPeerChannel{ChannelID: ent.ID, AccessHash: ent.AccessHash}
	case KindGroup:
		return &tg.InputPeerChat{ChatID: ent.ID}
	default:
		return &tg.InputPeerUser{UserID: ent.ID, AccessHash: ent.AccessHash}
	}
}
