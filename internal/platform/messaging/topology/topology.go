// Package topology declares the exchanges, queues and bindings of the settlement
// pipeline and resolves where a published message goes.
//
// Every queue is backed by a Kafka topic of the same name. Exchanges only exist in
// this table: publishing to an exchange with a routing key fans the message out to
// the topics of all matching bindings.
package topology

import (
	"sort"
	"strings"
	"time"

	"github.com/todaysales-settlement/internal/config"
)

// ExchangeKind decides how routing keys are matched against bindings.
type ExchangeKind string

const (
	KindTopic  ExchangeKind = "topic"
	KindDirect ExchangeKind = "direct"
)

const (
	SalesExchange = "sales.exchange"
	DLXExchange   = "dlx.exchange"

	SalesQueue        = "sales.queue"
	SettlementQueue   = "settlement.queue"
	NotificationQueue = "notification.queue"

	DLQSales        = "dlq.sales"
	DLQSettlement   = "dlq.settlement"
	DLQNotification = "dlq.notification"

	KeySaleCreated  = "sales.created"
	KeySettlement   = "sales.settlement"
	KeyNotification = "sales.notification"
)

type Exchange struct {
	Name    string
	Kind    ExchangeKind
	Durable bool
}

// Queue is a durable queue with its retention bounds. A queue without a
// DeadLetterExchange drops messages that are rejected.
type Queue struct {
	Name                 string
	TTL                  time.Duration
	MaxLength            int
	DeadLetterExchange   string
	DeadLetterRoutingKey string
}

// HasDeadLetter reports whether rejected messages of q are routed somewhere.
func (q Queue) HasDeadLetter() bool {
	return q.DeadLetterExchange != ""
}

type Binding struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

type Topology struct {
	exchanges map[string]Exchange
	queues    map[string]Queue
	bindings  []Binding
}

// New builds a topology from explicit declarations.
func New(exchanges []Exchange, queues []Queue, bindings []Binding) *Topology {
	t := &Topology{
		exchanges: make(map[string]Exchange, len(exchanges)),
		queues:    make(map[string]Queue, len(queues)),
		bindings:  bindings,
	}
	for _, e := range exchanges {
		t.exchanges[e.Name] = e
	}
	for _, q := range queues {
		t.queues[q.Name] = q
	}
	return t
}

// Default is the settlement pipeline: three live queues on the sales topic exchange,
// each dead-lettering into its own DLQ through the direct dlx exchange.
func Default(cfg config.BrokerConfig) *Topology {
	live := func(name, dlq string) Queue {
		return Queue{
			Name:                 name,
			TTL:                  cfg.QueueTTL,
			MaxLength:            cfg.QueueMaxLength,
			DeadLetterExchange:   DLXExchange,
			DeadLetterRoutingKey: dlq,
		}
	}
	dead := func(name string) Queue {
		return Queue{Name: name, TTL: cfg.DLQTTL, MaxLength: cfg.DLQMaxLength}
	}

	return New(
		[]Exchange{
			{Name: SalesExchange, Kind: KindTopic, Durable: true},
			{Name: DLXExchange, Kind: KindDirect, Durable: true},
		},
		[]Queue{
			live(SalesQueue, DLQSales),
			live(SettlementQueue, DLQSettlement),
			live(NotificationQueue, DLQNotification),
			dead(DLQSales),
			dead(DLQSettlement),
			dead(DLQNotification),
		},
		[]Binding{
			{Exchange: SalesExchange, Queue: SalesQueue, RoutingKey: KeySaleCreated},
			{Exchange: SalesExchange, Queue: SettlementQueue, RoutingKey: KeySettlement},
			{Exchange: SalesExchange, Queue: NotificationQueue, RoutingKey: KeyNotification},
			{Exchange: DLXExchange, Queue: DLQSales, RoutingKey: DLQSales},
			{Exchange: DLXExchange, Queue: DLQSettlement, RoutingKey: DLQSettlement},
			{Exchange: DLXExchange, Queue: DLQNotification, RoutingKey: DLQNotification},
		},
	)
}

// Route returns the queues a message published to exchange with routingKey lands in.
// An empty result means the message is unroutable.
func (t *Topology) Route(exchange, routingKey string) []Queue {
	ex, ok := t.exchanges[exchange]
	if !ok {
		return nil
	}

	var matched []Queue
	seen := make(map[string]bool)
	for _, b := range t.bindings {
		if b.Exchange != exchange || seen[b.Queue] {
			continue
		}
		if !matches(ex.Kind, b.RoutingKey, routingKey) {
			continue
		}
		if q, ok := t.queues[b.Queue]; ok {
			seen[b.Queue] = true
			matched = append(matched, q)
		}
	}
	return matched
}

func (t *Topology) Queue(name string) (Queue, bool) {
	q, ok := t.queues[name]
	return q, ok
}

// DeadLetterFor resolves the queue rejected messages of queue are moved to.
func (t *Topology) DeadLetterFor(queue string) (Queue, bool) {
	q, ok := t.queues[queue]
	if !ok || !q.HasDeadLetter() {
		return Queue{}, false
	}
	targets := t.Route(q.DeadLetterExchange, q.DeadLetterRoutingKey)
	if len(targets) == 0 {
		return Queue{}, false
	}
	return targets[0], true
}

// Queues lists every declared queue sorted by name.
func (t *Topology) Queues() []Queue {
	out := make([]Queue, 0, len(t.queues))
	for _, q := range t.queues {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DeadLetterQueues lists the names of queues that are a dead-letter target.
func (t *Topology) DeadLetterQueues() []string {
	var names []string
	for _, q := range t.Queues() {
		if dlq, ok := t.DeadLetterFor(q.Name); ok {
			names = append(names, dlq.Name)
		}
	}
	sort.Strings(names)
	return names
}

// LiveQueues lists queues that dead-letter into another queue.
func (t *Topology) LiveQueues() []string {
	var names []string
	for _, q := range t.Queues() {
		if q.HasDeadLetter() {
			names = append(names, q.Name)
		}
	}
	return names
}

func matches(kind ExchangeKind, pattern, key string) bool {
	if kind == KindDirect {
		return pattern == key
	}
	return MatchTopic(pattern, key)
}

// MatchTopic implements topic-exchange matching on dot separated words: "*" matches
// exactly one word and "#" matches zero or more.
func MatchTopic(pattern, key string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(key); i++ {
			if matchWords(pattern[1:], key[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(key) > 0 && matchWords(pattern[1:], key[1:])
	default:
		return len(key) > 0 && pattern[0] == key[0] && matchWords(pattern[1:], key[1:])
	}
}
