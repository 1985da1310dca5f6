package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/repositories"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
	"github.com/Redshadow31/tenf-v2-sub004/internal/platform/discord"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/identity"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// PlatformIDResolver maps logins to streaming-platform numeric IDs.
// *twitch.Client satisfies it.
type PlatformIDResolver interface {
	ResolveNumericIDs(ctx context.Context, logins []string) (map[string]string, error)
}

// ChatDirectory lists the members of the chat-platform guild.
// *discord.GuildDirectory satisfies it.
type ChatDirectory interface {
	Members(ctx context.Context) ([]discord.ChatMember, error)
}

// SyncResult summarizes one directory sync pass.
type SyncResult struct {
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// MemberService gerencia o diretório de membros.
type MemberService interface {
	Create(ctx context.Context, in member.CreateInput) (*member.Member, error)
	Get(ctx context.Context, login string) (*member.Member, error)
	List(ctx context.Context) ([]*member.Member, error)
	Update(ctx context.Context, login string, in member.UpdateInput) (*member.Member, error)
	SyncPlatformIDs(ctx context.Context) (SyncResult, error)
	SyncChatHandles(ctx context.Context) (SyncResult, error)
}

type memberService struct {
	repo     repositories.MemberRepository
	resolver PlatformIDResolver
	chat     ChatDirectory
	log      waLog.Logger
	now      func() time.Time
}

// NewMemberService builds the directory service. resolver and chat may be nil
// when the matching platform is not configured; the sync ops then fail with
// ErrUpstreamUnavailable.
func NewMemberService(repo repositories.MemberRepository, resolver PlatformIDResolver, chat ChatDirectory, log waLog.Logger) MemberService {
	if log == nil {
		log = waLog.Noop
	}
	return &memberService{
		repo:     repo,
		resolver: resolver,
		chat:     chat,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *memberService) Create(ctx context.Context, in member.CreateInput) (*member.Member, error) {
	login := identity.NormalizeLogin(in.Login)
	if login == "" {
		return nil, fmt.Errorf("%w: login", apperr.ErrMissingField)
	}
	role := in.Role
	if role == "" {
		role = member.RoleCommunity
	}
	if !member.ValidRole(role) {
		return nil, apperr.Validationf("unknown role %q", role)
	}
	chatID := strings.TrimSpace(in.ChatID)
	if chatID != "" && !identity.IsValidPlatformID(chatID) {
		return nil, apperr.Validationf("chat id must be 17 to 20 digits")
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = login
	}

	now := s.now()
	m := &member.Member{
		Login:       login,
		DisplayName: displayName,
		PlatformID:  strings.TrimSpace(in.PlatformID),
		ChatID:      chatID,
		ChatHandle:  strings.TrimSpace(in.ChatHandle),
		Role:        role,
		VIP:         in.VIP,
		Active:      true,
		Badges:      in.Badges,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, apperr.Upstream(err)
	}
	s.log.Infof("member %s created", login)
	return m, nil
}

func (s *memberService) Get(ctx context.Context, login string) (*member.Member, error) {
	m, err := s.repo.FindByLogin(ctx, identity.NormalizeLogin(login))
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	return m, nil
}

func (s *memberService) List(ctx context.Context) ([]*member.Member, error) {
	members, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	return members, nil
}

// Update aplica uma edição do admin e protege o registro contra ressincronização automática.
func (s *memberService) Update(ctx context.Context, login string, in member.UpdateInput) (*member.Member, error) {
	m, err := s.repo.FindByLogin(ctx, identity.NormalizeLogin(login))
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if in.Role != nil && !member.ValidRole(*in.Role) {
		return nil, apperr.Validationf("unknown role %q", *in.Role)
	}
	if in.ChatID != nil {
		if id := strings.TrimSpace(*in.ChatID); id != "" && !identity.IsValidPlatformID(id) {
			return nil, apperr.Validationf("chat id must be 17 to 20 digits")
		}
	}

	setString(&m.DisplayName, in.DisplayName)
	setString(&m.ProfileURL, in.ProfileURL)
	setString(&m.ChatID, in.ChatID)
	setString(&m.ChatHandle, in.ChatHandle)
	setString(&m.Description, in.Description)
	setString(&m.Bio, in.Bio)
	setString(&m.SiteUsername, in.SiteUsername)
	if in.Role != nil {
		m.Role = *in.Role
	}
	if in.VIP != nil {
		m.VIP = *in.VIP
	}
	if in.Active != nil {
		m.Active = *in.Active
	}
	if in.Badges != nil {
		m.Badges = append([]string(nil), (*in.Badges)...)
	}
	if in.ListID != nil {
		m.ListID = *in.ListID
	}
	m.ManualOverride = true
	m.UpdatedAt = s.now()

	if err := s.repo.Upsert(ctx, m); err != nil {
		return nil, apperr.Upstream(err)
	}
	return m, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// SyncPlatformIDs preenche o ID numérico da plataforma dos membros que não têm.
func (s *memberService) SyncPlatformIDs(ctx context.Context) (SyncResult, error) {
	result := SyncResult{Errors: []string{}}
	if s.resolver == nil {
		return result, fmt.Errorf("%w: platform resolver not configured", apperr.ErrUpstreamUnavailable)
	}
	members, err := s.repo.List(ctx)
	if err != nil {
		return result, apperr.Upstream(err)
	}

	pending := make([]*member.Member, 0, len(members))
	logins := make([]string, 0, len(members))
	for _, m := range members {
		if m.PlatformID != "" {
			continue
		}
		if m.ManualOverride {
			result.Skipped++
			continue
		}
		pending = append(pending, m)
		logins = append(logins, m.Login)
	}
	result.Checked = len(pending)
	if len(pending) == 0 {
		return result, nil
	}

	ids, err := s.resolver.ResolveNumericIDs(ctx, logins)
	if err != nil {
		return result, apperr.Upstream(err)
	}
	for _, m := range pending {
		id := ids[m.Login]
		if id == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: no platform user", m.Login))
			continue
		}
		m.PlatformID = id
		m.UpdatedAt = s.now()
		if err := s.repo.Upsert(ctx, m); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", m.Login, err))
			continue
		}
		result.Updated++
	}
	s.log.Infof("platform id sync: %d checked, %d updated, %d skipped", result.Checked, result.Updated, result.Skipped)
	return result, nil
}

// SyncChatHandles atualiza o handle de chat dos membros encontrados pelo ID numérico.
func (s *memberService) SyncChatHandles(ctx context.Context) (SyncResult, error) {
	result := SyncResult{Errors: []string{}}
	if s.chat == nil {
		return result, fmt.Errorf("%w: chat directory not configured", apperr.ErrUpstreamUnavailable)
	}
	guild, err := s.chat.Members(ctx)
	if err != nil {
		return result, apperr.Upstream(err)
	}
	handles := make(map[string]string, len(guild))
	for _, gm := range guild {
		handles[gm.ID] = gm.Handle()
	}

	members, err := s.repo.List(ctx)
	if err != nil {
		return result, apperr.Upstream(err)
	}
	for _, m := range members {
		if m.ChatID == "" {
			continue
		}
		handle, ok := handles[m.ChatID]
		if !ok {
			continue
		}
		result.Checked++
		if m.ManualOverride {
			result.Skipped++
			continue
		}
		if handle == m.ChatHandle {
			continue
		}
		m.ChatHandle = handle
		m.UpdatedAt = s.now()
		if err := s.repo.Upsert(ctx, m); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", m.Login, err))
			continue
		}
		result.Updated++
	}
	s.log.Infof("chat handle sync: %d checked, %d updated, %d skipped", result.Checked, result.Updated, result.Skipped)
	return result, nil
}
