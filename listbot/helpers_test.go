package listbot

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

// defaultTestConfig returns a Config suitable for tests: a temp sqlite
// database, fake credentials, and every notification channel set so
// nothing is silently skipped.
func defaultTestConfig(t testing.TB) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DatabaseType = dbTypeSQLite
	cfg.Database = filepath.Join(t.TempDir(), "test.sqlite3")
	cfg.Discord.Token = "test-token"
	cfg.Discord.ApplicationID = "test-app-id"
	cfg.Discord.GuildID = "guild-main"
	cfg.Discord.Channels = ChannelConfig{
		CompletedShifts:       "chan-completed-shifts",
		MissedShifts:          "chan-missed-shifts",
		ShiftsStarted:         "chan-shifts-started",
		ClassicRecords:        "chan-classic-records",
		ClassicArchiveRecords: "chan-classic-archive",
		PlatRecords:           "chan-plat-records",
		PlatArchiveRecords:    "chan-plat-archive",
		UcRecords:             "chan-uc-records",
		UcReminders:           "chan-uc-reminders",
		WeeklyUpdates:         "chan-weekly-updates",
	}
	cfg.Aredl.Token = "test-api-token"
	cfg.API.Enabled = false
	cfg.Points.Enabled = true
	cfg.Points.WeeklyEnabled = true
	return cfg
}

// newTestBot returns a Bot backed by a temp database, a stub upstream
// API and a recording Discord session.
func newTestBot(t testing.TB) (*Bot, *stubAredlAPI, *recordingSession) {
	t.Helper()

	cfg := defaultTestConfig(t)
	bot, err := New(cfg)
	require.NoError(t, err)

	db, err := CreateDB(
		context.Background(),
		cfg.DatabaseType,
		cfg.Database,
		bot.logHandler,
		cfg.DatabaseSlowThreshold,
	)
	require.NoError(t, err)
	t.Cleanup(
		func() {
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				_ = sqlDB.Close()
			}
		},
	)
	bot.db = db

	api := newStubAredlAPI()
	bot.api = api

	session := newRecordingSession()
	bot.discord.session = session

	bot.runCtx = context.Background()
	return bot, api, session
}

// stubAredlAPI is an in-memory AredlAPI for tests.
type stubAredlAPI struct {
	mu sync.Mutex

	users       map[string]*AredlUser
	levels      map[string]*AredlLevel
	shiftPages  map[string][]AredlShift
	submissions map[ListKind][]AredlSubmission

	userErr        error
	levelErr       error
	shiftsErr      error
	submissionsErr error
}

func newStubAredlAPI() *stubAredlAPI {
	return &stubAredlAPI{
		users:       map[string]*AredlUser{},
		levels:      map[string]*AredlLevel{},
		shiftPages:  map[string][]AredlShift{},
		submissions: map[ListKind][]AredlSubmission{},
	}
}

func (s *stubAredlAPI) Send(
	_ context.Context,
	_ string,
	_ string,
	_ url.Values,
	_ any,
) *APIResponse {
	return &APIResponse{Status: 200}
}

func (s *stubAredlAPI) User(_ context.Context, userID string) (
	*AredlUser,
	error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userErr != nil {
		return nil, s.userErr
	}
	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("no such user: %s", userID)
	}
	return user, nil
}

func (s *stubAredlAPI) Level(
	_ context.Context,
	list ListKind,
	levelID string,
) (*AredlLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.levelErr != nil {
		return nil, s.levelErr
	}
	level, ok := s.levels[string(list)+"/"+levelID]
	if !ok {
		return nil, fmt.Errorf("no such level: %s", levelID)
	}
	return level, nil
}

func (s *stubAredlAPI) Shifts(_ context.Context, query url.Values) (
	*Page[AredlShift],
	error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shiftsErr != nil {
		return nil, s.shiftsErr
	}
	page := query.Get("page")
	if page == "" {
		page = "1"
	}
	return &Page[AredlShift]{Data: s.shiftPages[page]}, nil
}

func (s *stubAredlAPI) Submissions(
	_ context.Context,
	list ListKind,
	_ SubmissionStatus,
) (*Page[AredlSubmission], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submissionsErr != nil {
		return nil, s.submissionsErr
	}
	return &Page[AredlSubmission]{Data: s.submissions[list]}, nil
}

type sentMessage struct {
	ChannelID string
	Data      *discordgo.MessageSend
}

type startedThread struct {
	ChannelID string
	MessageID string
	Data      *discordgo.ThreadStart
}

type channelEdit struct {
	ChannelID string
	Data      *discordgo.ChannelEdit
}

type addedReaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}

// recordingSession is a DiscordSessionHandler that records calls
// instead of talking to Discord.
type recordingSession struct {
	mu     sync.Mutex
	nextID int

	sent             []sentMessage
	threads          []startedThread
	edits            []channelEdit
	reactions        []addedReaction
	reactionsCleared []string
	dmChannels       []string
	responses        []*discordgo.InteractionResponse

	channelMessageErr error
	guildMemberErr    error
	sendErr           error
}

func newRecordingSession() *recordingSession {
	return &recordingSession{}
}

func (s *recordingSession) messagesTo(channelID string) []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rv []sentMessage
	for _, msg := range s.sent {
		if msg.ChannelID == channelID {
			rv = append(rv, msg)
		}
	}
	return rv
}

func (s *recordingSession) Open() error  { return nil }
func (s *recordingSession) Close() error { return nil }

func (s *recordingSession) AddHandler(_ any) func() {
	return func() {}
}

func (s *recordingSession) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.nextID++
	s.sent = append(s.sent, sentMessage{ChannelID: channelID, Data: data})
	return &discordgo.Message{
		ID:        fmt.Sprintf("msg-%d", s.nextID),
		ChannelID: channelID,
	}, nil
}

func (s *recordingSession) ChannelMessage(
	channelID string,
	messageID string,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channelMessageErr != nil {
		return nil, s.channelMessageErr
	}
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (s *recordingSession) MessageThreadStartComplex(
	channelID string,
	messageID string,
	data *discordgo.ThreadStart,
	_ ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.threads = append(
		s.threads,
		startedThread{ChannelID: channelID, MessageID: messageID, Data: data},
	)
	return &discordgo.Channel{ID: fmt.Sprintf("thread-%d", s.nextID)}, nil
}

func (s *recordingSession) ChannelEdit(
	channelID string,
	data *discordgo.ChannelEdit,
	_ ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, channelEdit{ChannelID: channelID, Data: data})
	return &discordgo.Channel{ID: channelID, Name: data.Name}, nil
}

func (s *recordingSession) MessageReactionAdd(
	channelID string,
	messageID string,
	emojiID string,
	_ ...discordgo.RequestOption,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactions = append(
		s.reactions,
		addedReaction{ChannelID: channelID, MessageID: messageID, Emoji: emojiID},
	)
	return nil
}

func (s *recordingSession) MessageReactionsRemoveAll(
	_ string,
	messageID string,
	_ ...discordgo.RequestOption,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactionsCleared = append(s.reactionsCleared, messageID)
	return nil
}

func (s *recordingSession) UserChannelCreate(
	recipientID string,
	_ ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dmChannels = append(s.dmChannels, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (s *recordingSession) GuildMember(
	guildID string,
	userID string,
	_ ...discordgo.RequestOption,
) (*discordgo.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guildMemberErr != nil {
		return nil, s.guildMemberErr
	}
	return &discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: userID},
	}, nil
}

func (s *recordingSession) ApplicationCommandBulkOverwrite(
	_ string,
	_ string,
	commands []*discordgo.ApplicationCommand,
	_ ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	return commands, nil
}

func (s *recordingSession) InteractionRespond(
	_ *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return nil
}
