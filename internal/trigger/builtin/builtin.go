// Package builtin lists the trigger plugins compiled into netsav.
package builtin

import (
	"github.com/doridoridoriand/netsav-go/internal/trigger"
	"github.com/doridoridoriand/netsav-go/internal/trigger/kafka"
	"github.com/doridoridoriand/netsav-go/internal/trigger/logger"
	"github.com/doridoridoriand/netsav-go/internal/trigger/mail"
	"github.com/doridoridoriand/netsav-go/internal/trigger/statsd"
	"github.com/doridoridoriand/netsav-go/internal/trigger/webhook"
)

// Registry returns a fresh registry of every built-in plugin.
func Registry() trigger.Registry {
	return trigger.Registry{
		kafka.Name:   kafka.New,
		logger.Name:  logger.New,
		mail.Name:    mail.New,
		statsd.Name:  statsd.New,
		webhook.Name: webhook.New,
	}
}
