package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	analytics "github.com/ingestkit/go-analytics-sdk"
)

// MessageCmd holds the flags of one message subcommand.
type MessageCmd struct {
	global *GlobalOptions
	kind   analytics.Kind

	UserID       string
	AnonymousID  string
	Event        string
	Name         string
	Category     string
	GroupID      string
	PreviousID   string
	Properties   string
	Traits       string
	Context      string
	Integrations string
	Timestamp    string
}

var messageSenders = map[analytics.Kind]func(*analytics.Client, analytics.Message, analytics.Callback) error{ //nolint:gochecknoglobals
	analytics.KindIdentify: (*analytics.Client).Identify,
	analytics.KindGroup:    (*analytics.Client).Group,
	analytics.KindTrack:    (*analytics.Client).Track,
	analytics.KindPage:     (*analytics.Client).Page,
	analytics.KindScreen:   (*analytics.Client).Screen,
	analytics.KindAlias:    (*analytics.Client).Alias,
}

var messageDescriptions = map[analytics.Kind]string{ //nolint:gochecknoglobals
	analytics.KindIdentify: "Record who a user is",
	analytics.KindGroup:    "Associate a user with a group",
	analytics.KindTrack:    "Record an action a user performed",
	analytics.KindPage:     "Record a page view",
	analytics.KindScreen:   "Record a screen view",
	analytics.KindAlias:    "Merge two user identities",
}

// NewMessageCmd creates the subcommand that sends one message of the given kind.
func NewMessageCmd(global *GlobalOptions, kind analytics.Kind) *cobra.Command {
	cmd := &MessageCmd{global: global, kind: kind}
	messageCmd := &cobra.Command{
		Use:   string(kind),
		Short: messageDescriptions[kind],
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cmd.Event = args[0]
			}
			return cmd.Run(cobraCmd)
		},
	}
	if kind == analytics.KindTrack {
		messageCmd.Use = "track [event]"
		messageCmd.Args = cobra.MaximumNArgs(1)
	}

	flags := messageCmd.Flags()
	flags.StringVar(&cmd.UserID, "user-id", "", "user ID")
	flags.StringVar(&cmd.AnonymousID, "anonymous-id", "", "anonymous ID")
	flags.StringVar(&cmd.Context, "context", "", "context as a JSON object")
	flags.StringVar(&cmd.Integrations, "integrations", "", "integrations as a JSON object")
	flags.StringVar(&cmd.Timestamp, "timestamp", "", "RFC 3339 time of the message (default now)")
	switch kind {
	case analytics.KindTrack:
		flags.StringVar(&cmd.Event, "event", "", "event name")
		flags.StringVar(&cmd.Properties, "properties", "", "properties as a JSON object")
	case analytics.KindPage:
		flags.StringVar(&cmd.Name, "name", "", "page name")
		flags.StringVar(&cmd.Category, "category", "", "page category")
		flags.StringVar(&cmd.Properties, "properties", "", "properties as a JSON object")
	case analytics.KindScreen:
		flags.StringVar(&cmd.Name, "name", "", "screen name")
		flags.StringVar(&cmd.Properties, "properties", "", "properties as a JSON object")
	case analytics.KindIdentify:
		flags.StringVar(&cmd.Traits, "traits", "", "traits as a JSON object")
	case analytics.KindGroup:
		flags.StringVar(&cmd.GroupID, "group-id", "", "group ID")
		flags.StringVar(&cmd.Traits, "traits", "", "traits as a JSON object")
	case analytics.KindAlias:
		flags.StringVar(&cmd.PreviousID, "previous-id", "", "previous user ID")
	}
	return messageCmd
}

// Run builds the message, sends it, and waits until it has been delivered or has failed. The message ID
// is printed on success.
func (cmd *MessageCmd) Run(cobraCmd *cobra.Command) error {
	message, err := cmd.message()
	if err != nil {
		return err
	}

	writeKey, config, closer, err := cmd.global.ClientConfig()
	if err != nil {
		return err
	}
	defer closer.Close()

	client, err := analytics.NewClient(writeKey, config)
	if err != nil {
		return err
	}

	var (
		messageID   interface{}
		deliveryErr error
	)
	done := make(chan struct{})
	callback := func(batch *analytics.Batch, err error) {
		deliveryErr = err
		if batch != nil && len(batch.Messages) > 0 {
			messageID = batch.Messages[0]["messageId"]
		}
		close(done)
	}

	if err := messageSenders[cmd.kind](client, message, callback); err != nil {
		_ = client.Close()
		return err
	}
	if err := client.Close(); err != nil {
		return err
	}
	<-done

	if deliveryErr != nil {
		return errors.Wrap(deliveryErr, "message was not delivered")
	}
	fmt.Fprintln(cobraCmd.OutOrStdout(), messageID)
	return nil
}

func (cmd *MessageCmd) message() (analytics.Message, error) {
	message := analytics.Message{}
	setString(message, "userId", cmd.UserID)
	setString(message, "anonymousId", cmd.AnonymousID)
	setString(message, "event", cmd.Event)
	setString(message, "name", cmd.Name)
	setString(message, "category", cmd.Category)
	setString(message, "groupId", cmd.GroupID)
	setString(message, "previousId", cmd.PreviousID)

	objects := []struct {
		field, raw string
	}{
		{"properties", cmd.Properties},
		{"traits", cmd.Traits},
		{"context", cmd.Context},
		{"integrations", cmd.Integrations},
	}
	for _, o := range objects {
		if o.raw == "" {
			continue
		}
		obj, err := parseObject(o.raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --%s", o.field)
		}
		message[o.field] = obj
	}

	if cmd.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, cmd.Timestamp)
		if err != nil {
			return nil, errors.Wrap(err, "invalid --timestamp")
		}
		message["timestamp"] = ts
	}
	return message, nil
}

func setString(message analytics.Message, field, value string) {
	if value != "" {
		message[field] = value
	}
}

func parseObject(raw string) (map[string]interface{}, error) {
	var value ldvalue.Value
	if err := value.UnmarshalJSON([]byte(strings.TrimSpace(raw))); err != nil {
		return nil, err
	}
	if value.Type() != ldvalue.ObjectType {
		return nil, errors.Errorf("expected a JSON object, got %s", value.Type())
	}
	obj, _ := value.AsArbitraryValue().(map[string]interface{})
	return obj, nil
}

// NewConfigCmd creates the subcommand that prints the effective client configuration.
func NewConfigCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective client configuration",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			writeKey, config, closer, err := global.ClientConfig()
			if err != nil {
				return err
			}
			defer closer.Close()
			description := config.Describe()
			fmt.Fprintln(cobraCmd.OutOrStdout(), ldvalue.ObjectBuild().
				Set("writeKeySet", ldvalue.Bool(writeKey != "")).
				Set("client", description).
				Build().JSONString())
			return nil
		},
	}
}
