package wschannel

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	wsmodels "quicksearch-backend/models/ws"
)

// Handler обработчик события. Обработчики одного типа вызываются в порядке
// подписки, паника одного не мешает остальным.
type Handler func(payload json.RawMessage)

type Options struct {
	BaseUrl       string
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	MaxAttempts   int
}

type Provider interface {
	Connect(ctx context.Context, userID, token string) error
	Disconnect()
	On(eventType wsmodels.EventType, handler Handler) (subID int)
	Off(eventType wsmodels.EventType, subID int)
	Send(eventType wsmodels.EventType, payload interface{})
	IsConnected() bool
}

// NewChannel канал создаётся композиционным корнем хост-приложения и
// передаётся явно, глобального сокета у библиотеки нет.
func NewChannel(opts Options, dialer Dialer) Provider {
	if dialer == nil {
		dialer = GorillaDialer
	}
	return &impl{
		opts:     opts,
		dialer:   dialer,
		handlers: map[wsmodels.EventType][]subscription{},
	}
}

type subscription struct {
	id      int
	handler Handler
}

type impl struct {
	opts   Options
	dialer Dialer

	mu           sync.Mutex
	writeMu      sync.Mutex
	conn         Conn
	connected    bool
	reconnecting bool
	userID       string
	token        string
	attempt      int
	generation   int
	sessionCtx   context.Context
	sessionStop  context.CancelFunc
	handlers     map[wsmodels.EventType][]subscription
	nextSubID    int
}

func (c *impl) Connect(ctx context.Context, userID, token string) error {
	c.mu.Lock()
	if c.connected && c.userID == userID {
		c.mu.Unlock()
		return nil
	}
	if c.sessionStop != nil {
		c.sessionStop()
	}
	c.closeConnLocked()
	c.userID = userID
	c.token = token
	c.attempt = 0
	c.sessionCtx, c.sessionStop = context.WithCancel(context.Background())
	sessCtx := c.sessionCtx
	err := c.dialLocked(ctx)
	c.mu.Unlock()

	if err != nil {
		log.WithError(err).
			WithField("user_id", userID).
			Error("ошибка подключения к серверу координации")
		c.scheduleReconnect(sessCtx)
		return err
	}
	c.dispatch(wsmodels.EventConnected, nil)
	return nil
}

func (c *impl) Disconnect() {
	c.mu.Lock()
	if c.sessionStop != nil {
		c.sessionStop()
		c.sessionStop = nil
	}
	c.closeConnLocked()
	// по контракту disconnect снимает всех подписчиков
	c.handlers = map[wsmodels.EventType][]subscription{}
	c.mu.Unlock()
}

func (c *impl) On(eventType wsmodels.EventType, handler Handler) (subID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	c.handlers[eventType] = append(c.handlers[eventType], subscription{
		id:      c.nextSubID,
		handler: handler,
	})
	return c.nextSubID
}

func (c *impl) Off(eventType wsmodels.EventType, subID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.handlers[eventType]
	for k, sub := range subs {
		if sub.id == subID {
			c.handlers[eventType] = append(subs[:k], subs[k+1:]...)
			return
		}
	}
}

// Send отправка без очереди: при отсутствии соединения сообщение
// отбрасывается с предупреждением, команду переиздаёт вызывающий.
func (c *impl) Send(eventType wsmodels.EventType, payload interface{}) {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()
	if !connected || conn == nil {
		log.WithField("event_type", string(eventType)).
			Warn("сообщение не отправлено: нет соединения")
		return
	}
	envelope, err := wsmodels.NewEnvelope(eventType, payload)
	if err != nil {
		log.WithError(err).
			WithField("event_type", string(eventType)).
			Error("ошибка сериализации сообщения")
		return
	}
	c.writeMu.Lock()
	err = conn.WriteJSON(envelope)
	c.writeMu.Unlock()
	if err != nil {
		log.WithError(err).
			WithField("event_type", string(eventType)).
			Error("ошибка отправки сообщения")
	}
}

func (c *impl) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *impl) socketUrl() string {
	return fmt.Sprintf("%squick-search/%s/?token=%s", c.opts.BaseUrl, c.userID, c.token)
}

// dialLocked вызывается под c.mu
func (c *impl) dialLocked(ctx context.Context) error {
	conn, err := c.dialer(ctx, c.socketUrl())
	if err != nil {
		return err
	}
	c.conn = conn
	c.connected = true
	c.attempt = 0
	c.generation++
	go c.readLoop(c.sessionCtx, conn, c.generation)
	log.WithField("user_id", c.userID).Info("соединение с сервером координации установлено")
	return nil
}

func (c *impl) closeConnLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

func (c *impl) readLoop(sessCtx context.Context, conn Conn, generation int) {
	for {
		envelope := wsmodels.Envelope{}
		err := conn.ReadJSON(&envelope)
		if err != nil {
			if sessCtx.Err() != nil {
				// явный disconnect, переподключение не требуется
				return
			}
			c.mu.Lock()
			stale := generation != c.generation
			if !stale {
				c.closeConnLocked()
			}
			c.mu.Unlock()
			if !stale {
				log.WithError(err).Warn("соединение с сервером координации потеряно")
				c.scheduleReconnect(sessCtx)
			}
			return
		}
		eventType := wsmodels.ParseEventType(envelope.Type)
		if eventType == wsmodels.EventUnknown {
			// совместимость вперёд: новые типы сервера игнорируются
			log.WithField("msg_type", envelope.Type).Info("неизвестный тип сообщения, пропущен")
			continue
		}
		c.dispatch(eventType, envelope.Payload)
	}
}

func (c *impl) scheduleReconnect(sessCtx context.Context) {
	c.mu.Lock()
	if c.reconnecting || sessCtx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()
	go c.reconnectLoop(sessCtx)
}

func (c *impl) reconnectLoop(sessCtx context.Context) {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()
	for {
		c.mu.Lock()
		attempt := c.attempt
		c.mu.Unlock()
		if attempt >= c.opts.MaxAttempts {
			log.WithField("attempts", attempt).
				Error("переподключение исчерпало попытки")
			c.dispatch(wsmodels.EventConnectionFailed, nil)
			return
		}
		select {
		case <-sessCtx.Done():
			return
		case <-time.After(c.backoffDelay(attempt)):
		}
		c.mu.Lock()
		if c.connected || sessCtx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.attempt = attempt + 1
		err := c.dialLocked(sessCtx)
		c.mu.Unlock()
		if err == nil {
			c.dispatch(wsmodels.EventConnected, nil)
			return
		}
		log.WithError(err).
			WithField("attempt", attempt+1).
			Warn("попытка переподключения не удалась")
	}
}

// backoffDelay delay = min(base * 2^attempt, max)
func (c *impl) backoffDelay(attempt int) time.Duration {
	delay := c.opts.ReconnectBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.opts.ReconnectMax {
			return c.opts.ReconnectMax
		}
	}
	if delay > c.opts.ReconnectMax {
		return c.opts.ReconnectMax
	}
	return delay
}

func (c *impl) dispatch(eventType wsmodels.EventType, payload json.RawMessage) {
	c.mu.Lock()
	subs := append([]subscription(nil), c.handlers[eventType]...)
	c.mu.Unlock()
	for _, sub := range subs {
		c.safeCall(eventType, sub, payload)
	}
}

func (c *impl) safeCall(eventType wsmodels.EventType, sub subscription, payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("event_type", string(eventType)).
				WithField("panic_stack", string(debug.Stack())).
				Errorf("panic в обработчике события: (%v)", r)
		}
	}()
	sub.handler(payload)
}
