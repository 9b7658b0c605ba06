package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/diegoclair/flashevent-bot/internal/domain"
	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
	"github.com/diegoclair/flashevent-bot/internal/domain/entity"
	slackcmd "github.com/diegoclair/flashevent-bot/internal/domain/slack"
	"go.uber.org/zap"
)

type dispatcher struct {
	store   contract.Store
	roster  *rosterService
	flags   *flagService
	trigger *triggerEvaluator
	convs   *conversationTracker
	sender  contract.MessageSender
	clock   domain.Clock
	log     *zap.Logger

	chimeChannelID string
	debugChannelID string
}

func (d *dispatcher) Dispatch(ctx context.Context, in entity.Inbound) (*entity.Reply, error) {
	cmd := slackcmd.ParseCommand(in.Text)

	convKey := entity.ConversationKey{UserID: in.SenderID, ChannelID: in.ChannelID}
	if cmd.Type == slackcmd.CmdChatter {
		if reply, ok := d.convs.Continue(convKey, in.Text); ok {
			return &entity.Reply{Text: reply}, nil
		}
	}

	switch cmd.Type {
	case slackcmd.CmdEnroll:
		return d.enroll(ctx, cmd)
	case slackcmd.CmdUnenroll:
		return d.unenroll(ctx, cmd)
	case slackcmd.CmdList:
		return d.list(ctx)
	case slackcmd.CmdFlashEvent:
		return d.flashEvent(ctx, in.SenderID, cmd)
	case slackcmd.CmdForceFlashEvent:
		return d.forceFlashEvent(ctx, cmd)
	case slackcmd.CmdErase:
		return d.erase(ctx, cmd)
	case slackcmd.CmdChime:
		return d.chimeCommand(ctx, in)
	case slackcmd.CmdCheckin:
		return &entity.Reply{Text: d.convs.Start(convKey)}, nil
	case slackcmd.CmdThanks:
		return &entity.Reply{Text: d.trigger.pickFrom(domain.ThanksLines)}, nil
	case slackcmd.CmdHelp:
		return &entity.Reply{Text: slackcmd.GetHelpText()}, nil
	default:
		return &entity.Reply{Text: d.trigger.pickFrom(domain.ChatterLines)}, nil
	}
}

func (d *dispatcher) enroll(ctx context.Context, cmd *slackcmd.Command) (*entity.Reply, error) {
	if len(cmd.Args) < 3 {
		return nil, domain.NewValidationError("Invalid command. Correct syntax is `enroll @user name offset`, e.g. `enroll @whopper whopper +5`")
	}

	id := slackcmd.ParseMention(cmd.Args[0])
	officer, err := d.roster.Enroll(ctx, id, cmd.Args[1], cmd.Args[2])
	if err != nil {
		return nil, err
	}

	d.log.Info("officer enrolled",
		zap.String("officer_id", officer.ID),
		zap.String("name", officer.Name),
		zap.Int("utc_offset", officer.UTCOffset),
	)

	return &entity.Reply{
		InChannel: true,
		Text: fmt.Sprintf("Enrolling user @%s (%s) at timezone UTC %s. If this was done in error, please use `unenroll @%s` to remove.",
			officer.Name, officer.ID, officer.OffsetString(), officer.Name),
	}, nil
}

func (d *dispatcher) unenroll(ctx context.Context, cmd *slackcmd.Command) (*entity.Reply, error) {
	if len(cmd.Args) < 1 {
		return nil, domain.NewValidationError("Invalid command. Correct syntax is `unenroll @user`, e.g. `unenroll @whopper`")
	}

	id := slackcmd.ParseMention(cmd.Args[0])
	if err := d.roster.Unenroll(ctx, id); err != nil {
		return nil, err
	}

	d.log.Info("officer unenrolled", zap.String("officer_id", id))

	return &entity.Reply{
		InChannel: true,
		Text:      fmt.Sprintf("Unenrolled user %s.", id),
	}, nil
}

func (d *dispatcher) list(ctx context.Context) (*entity.Reply, error) {
	overview, err := d.overview(ctx)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("*Weekly flash events:*\n")
	for day, active := range overview.Flags {
		state := "off"
		if active {
			state = "on"
		}
		b.WriteString(fmt.Sprintf("• %d %s: %s\n", day, domain.WeekdayNames[day], state))
	}

	if len(overview.Officers) == 0 {
		b.WriteString("\nNo officers enrolled. Use `enroll @user name offset` to add one.")
	} else {
		b.WriteString(fmt.Sprintf("\n*Enrolled officers (%d):*\n", len(overview.Officers)))
		for _, o := range overview.Officers {
			b.WriteString(fmt.Sprintf("• %s (%s) UTC %s\n", o.Name, o.ID, o.OffsetString()))
		}
	}

	if len(overview.UnknownKeys) > 0 {
		b.WriteString("\n*Unrecognized entries:* ")
		for i, key := range overview.UnknownKeys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("`" + key + "`")
		}
		b.WriteString(fmt.Sprintf("\nUse `erase key %s` to remove them.", domain.ConfirmToken))
	}

	return &entity.Reply{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func (d *dispatcher) overview(ctx context.Context) (*entity.Overview, error) {
	officers, err := d.roster.List(ctx)
	if err != nil {
		return nil, err
	}

	week, err := d.flags.Week(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := d.store.List(ctx)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to list entries", err)
	}

	known := make(map[string]bool, len(officers)+len(week))
	for _, o := range officers {
		known[officerKey(o.ID)] = true
	}
	for day := range week {
		known[flagKey(day)] = true
	}

	overview := &entity.Overview{Officers: officers, Flags: week}
	for _, key := range keys {
		if !known[key] {
			overview.UnknownKeys = append(overview.UnknownKeys, key)
		}
	}

	return overview, nil
}

func parseOnOff(arg string) (bool, bool) {
	switch strings.ToLower(arg) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

func (d *dispatcher) flashEvent(ctx context.Context, senderID string, cmd *slackcmd.Command) (*entity.Reply, error) {
	usage := domain.NewValidationError("Invalid command. Correct syntax is `flashevent on|off`")
	if len(cmd.Args) < 1 {
		return nil, usage
	}
	active, ok := parseOnOff(cmd.Args[0])
	if !ok {
		return nil, usage
	}

	officer, err := d.roster.Get(ctx, senderID)
	if domain.IsKind(err, domain.KindNotFound) {
		return nil, domain.NewValidationError("You are not enrolled, so I don't know your timezone. Ask an officer to `enroll` you first.")
	}
	if err != nil {
		return nil, err
	}

	local := domain.LocalTimeAt(d.clock.Now(), officer.UTCOffset)
	if err := d.flags.SetFlag(ctx, local.Weekday, active); err != nil {
		return nil, err
	}

	d.log.Info("flash event toggled",
		zap.String("officer_id", officer.ID),
		zap.Int("weekday", local.Weekday),
		zap.Bool("active", active),
	)

	return &entity.Reply{
		InChannel: true,
		Text: fmt.Sprintf("Captain @%s: your weekday is %d (%s, Sunday is 0) and your time is %s (day %d hour %d). Flash Event is now %s.",
			officer.Name, local.Weekday, domain.WeekdayNames[local.Weekday], local.Time.Format("2006-01-02 15:04"),
			local.Day, local.Hour, strings.ToLower(cmd.Args[0])),
	}, nil
}

func (d *dispatcher) forceFlashEvent(ctx context.Context, cmd *slackcmd.Command) (*entity.Reply, error) {
	if len(cmd.Args) < 1 {
		return nil, domain.NewValidationError("Invalid command. Correct syntax is `forceflashevent 0|1|2|3|4|5|6 [on|off]`, e.g. `forceflashevent 3`")
	}

	day, err := ParseWeekday(cmd.Args[0])
	if err != nil {
		return nil, err
	}

	mode := "on"
	if len(cmd.Args) > 1 {
		mode = strings.ToLower(cmd.Args[1])
	}

	if mode == "clear" {
		confirm := ""
		if len(cmd.Args) > 2 {
			confirm = cmd.Args[2]
		}
		if err := d.flags.ClearFlag(ctx, day, confirm); err != nil {
			return nil, err
		}
		d.log.Info("flash event flag cleared", zap.Int("weekday", day))
		return &entity.Reply{InChannel: true, Text: fmt.Sprintf("Cleared the Flash Event flag for day %d (%s).", day, domain.WeekdayNames[day])}, nil
	}

	active, ok := parseOnOff(mode)
	if !ok {
		return nil, domain.NewValidationError("Invalid command. Correct syntax is `forceflashevent 0-6 [on|off|clear]`")
	}

	if err := d.flags.SetFlag(ctx, day, active); err != nil {
		return nil, err
	}

	d.log.Info("flash event forced", zap.Int("weekday", day), zap.Bool("active", active))

	return &entity.Reply{
		InChannel: true,
		Text:      fmt.Sprintf("Forced Flash Event %s for day %d (%s) of week.", mode, day, domain.WeekdayNames[day]),
	}, nil
}

func (d *dispatcher) erase(ctx context.Context, cmd *slackcmd.Command) (*entity.Reply, error) {
	if len(cmd.Args) < 1 {
		return nil, domain.NewValidationError("Invalid command. Correct syntax is `erase key %s`, e.g. `erase WEFSBDLFK %s`", domain.ConfirmToken, domain.ConfirmToken)
	}

	key := cmd.Args[0]
	confirm := ""
	if len(cmd.Args) > 1 {
		confirm = cmd.Args[1]
	}

	if err := d.flags.EraseRaw(ctx, key, confirm); err != nil {
		return nil, err
	}

	d.log.Warn("raw entry erased", zap.String("key", key))

	return &entity.Reply{Text: fmt.Sprintf("Erased entry `%s`.", key)}, nil
}

func (d *dispatcher) chimeCommand(ctx context.Context, in entity.Inbound) (*entity.Reply, error) {
	if d.chimeChannelID != "" && in.ChannelID != d.chimeChannelID {
		return nil, domain.NewValidationError("I only chime in the reminders channel.")
	}

	report, err := d.Chime(ctx)
	if err != nil {
		return nil, err
	}

	return &entity.Reply{
		Text: fmt.Sprintf("Chimed %d officers: %d notified, %d failed.", report.Evaluated, report.Notified, report.Failed),
	}, nil
}

// Chime runs one broadcast tick over the whole roster. Officers are evaluated
// in order; their notifications are sent concurrently and the tick returns
// once every send has reported back. A failed send is logged and counted.
func (d *dispatcher) Chime(ctx context.Context) (*entity.ChimeReport, error) {
	now := d.clock.Now()
	report := &entity.ChimeReport{}

	var (
		wg     sync.WaitGroup
		sent   atomic.Int64
		failed atomic.Int64
	)

	send := func(n entity.Notification, count bool) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.sender.Send(ctx, n); err != nil {
				d.log.Error("failed to send notification", zap.String("target", n.Target), zap.Error(err))
				if count {
					failed.Add(1)
				}
				return
			}
			if count {
				sent.Add(1)
			}
		}()
	}

	flags := newTickFlags(d.flags)
	err := d.roster.Each(ctx, func(o entity.Officer) error {
		report.Evaluated++
		local := domain.LocalTimeAt(now, o.UTCOffset)

		notify, err := d.trigger.ShouldNotify(ctx, local.Hour, local.Weekday, flags)
		if err != nil {
			return err
		}

		if d.debugChannelID != "" {
			state := "OFF"
			if flags.seen[local.Weekday] {
				state = "ON"
			}
			send(entity.Notification{
				Target:    d.debugChannelID,
				LinkNames: true,
				AsUser:    true,
				Text: fmt.Sprintf("@%s: your weekday is %d (Sunday is 0) and your time is %s (day %d hour %d). Today's Flash Event is %s.",
					o.Name, local.Weekday, local.Time.Format("2006-01-02 15:04"), local.Day, local.Hour, state),
			}, false)
		}

		if !notify {
			return nil
		}

		send(entity.Notification{
			Target:    o.ID,
			Text:      fmt.Sprintf("<@%s>: %s", o.ID, d.trigger.PickFlavor()),
			LinkNames: true,
			AsUser:    true,
		}, true)
		return nil
	})

	wg.Wait()
	report.Notified = int(sent.Load())
	report.Failed = int(failed.Load())

	if err != nil {
		d.log.Error("chime aborted", zap.Error(err), zap.Int("evaluated", report.Evaluated))
		return report, err
	}

	d.log.Info("chime finished",
		zap.Int("evaluated", report.Evaluated),
		zap.Int("notified", report.Notified),
		zap.Int("failed", report.Failed),
	)

	return report, nil
}

// tickFlags reads each weekday flag at most once per tick, so the notify
// decision and the debug line always agree.
type tickFlags struct {
	flags FlagReader
	seen  map[int]bool
}

func newTickFlags(flags FlagReader) *tickFlags {
	return &tickFlags{flags: flags, seen: make(map[int]bool, 7)}
}

func (f *tickFlags) GetFlag(ctx context.Context, day int) (bool, error) {
	if active, ok := f.seen[day]; ok {
		return active, nil
	}
	active, err := f.flags.GetFlag(ctx, day)
	if err != nil {
		return false, err
	}
	f.seen[day] = active
	return active, nil
}
