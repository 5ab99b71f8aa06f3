package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/interviewer/internal/interview"
)

// interactionResponder answers a slash command. The first message becomes
// the interaction response; later messages are follow-ups.
type interactionResponder struct {
	sess        session
	interaction *discordgo.Interaction

	mu        sync.Mutex
	responded bool
}

// Provisional posts text as the interaction response so it can be edited in
// place. If the interaction has already been answered, text is posted to the
// channel instead.
func (r *interactionResponder) Provisional(ctx context.Context, text string) (interview.Provisional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.responded {
		return postChannelMessage(r.sess, r.interaction.ChannelID, text)
	}
	if err := r.respond(text); err != nil {
		return nil, err
	}
	return &interactionMessage{sess: r.sess, interaction: r.interaction}, nil
}

// Send answers the interaction, or adds a follow-up once it has been answered.
func (r *interactionResponder) Send(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.responded {
		return r.respond(text)
	}
	if _, err := r.sess.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{Content: text}); err != nil {
		return fmt.Errorf("discord: followup message: %w", err)
	}
	return nil
}

// respond sends the initial interaction response. Callers must hold r.mu.
func (r *interactionResponder) respond(text string) error {
	err := r.sess.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text},
	})
	if err != nil {
		return fmt.Errorf("discord: interaction respond: %w", err)
	}
	r.responded = true
	return nil
}

// interactionMessage is the original response to an interaction.
type interactionMessage struct {
	sess        session
	interaction *discordgo.Interaction
}

func (m *interactionMessage) Edit(ctx context.Context, text string) error {
	if _, err := m.sess.InteractionResponseEdit(m.interaction, &discordgo.WebhookEdit{Content: &text}); err != nil {
		return fmt.Errorf("discord: edit interaction response: %w", err)
	}
	return nil
}

func (m *interactionMessage) Delete(ctx context.Context) error {
	if err := m.sess.InteractionResponseDelete(m.interaction); err != nil {
		return fmt.Errorf("discord: delete interaction response: %w", err)
	}
	return nil
}

// channelResponder replies with regular messages in a channel.
type channelResponder struct {
	sess      session
	channelID string
}

func (r *channelResponder) Provisional(ctx context.Context, text string) (interview.Provisional, error) {
	return postChannelMessage(r.sess, r.channelID, text)
}

func (r *channelResponder) Send(ctx context.Context, text string) error {
	if _, err := r.sess.ChannelMessageSend(r.channelID, text); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

func postChannelMessage(sess session, channelID, text string) (interview.Provisional, error) {
	msg, err := sess.ChannelMessageSend(channelID, text)
	if err != nil {
		return nil, fmt.Errorf("discord: send message: %w", err)
	}
	return &channelMessage{sess: sess, channelID: channelID, messageID: msg.ID}, nil
}

// channelMessage is a posted channel message.
type channelMessage struct {
	sess      session
	channelID string
	messageID string
}

func (m *channelMessage) Edit(ctx context.Context, text string) error {
	if _, err := m.sess.ChannelMessageEdit(m.channelID, m.messageID, text); err != nil {
		return fmt.Errorf("discord: edit message: %w", err)
	}
	return nil
}

func (m *channelMessage) Delete(ctx context.Context) error {
	if err := m.sess.ChannelMessageDelete(m.channelID, m.messageID); err != nil {
		return fmt.Errorf("discord: delete message: %w", err)
	}
	return nil
}
