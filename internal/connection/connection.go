package connection

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var ErrConnectionClosed = errors.New("connection closed")

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second

	// 写缓冲大小，写满说明客户端消费过慢，直接断开以限制背压
	sendBufferSize = 256
)

var connIDCounter int64

// Connection 表示一个已认证的 WebSocket 客户端连接
// 出站写入统一经过带缓冲的写通道，保证并发安全
type Connection struct {
	id         int64
	userID     int64
	username   string
	ws         *websocket.Conn
	logger     *slog.Logger
	writeChan  chan []byte
	closeChan  chan struct{}
	closeOnce  sync.Once
	createTime time.Time
}

// New 创建连接并启动写循环
func New(userID int64, username string, ws *websocket.Conn) *Connection {
	c := &Connection{
		id:         atomic.AddInt64(&connIDCounter, 1),
		userID:     userID,
		username:   username,
		ws:         ws,
		logger:     slog.Default(),
		writeChan:  make(chan []byte, sendBufferSize),
		closeChan:  make(chan struct{}),
		createTime: time.Now(),
	}
	go c.writeLoop()
	return c
}

func (c *Connection) ID() int64 {
	return c.id
}

func (c *Connection) UserID() int64 {
	return c.userID
}

func (c *Connection) Username() string {
	return c.username
}

func (c *Connection) CreateTime() time.Time {
	return c.createTime
}

// Send 投递数据给客户端
// 连接已关闭返回 ErrConnectionClosed；缓冲写满时关闭连接
func (c *Connection) Send(data []byte) error {
	select {
	case <-c.closeChan:
		return ErrConnectionClosed
	case c.writeChan <- data:
		return nil
	default:
		c.logger.Warn("Send buffer full, closing connection",
			"connId", c.id,
			"userId", c.userID)
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrConnectionClosed
	}
}

// Close 关闭连接并停止写循环
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		deadline := time.Now().Add(writeWait)
		_ = c.ws.SetWriteDeadline(deadline)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

// writeLoop 写循环协程，串行化所有出站写入
func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case data := <-c.writeChan:
			if err := c.writeMessage(data); err != nil {
				c.logger.Debug("Write failed", "connId", c.id, "error", err)
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func (c *Connection) writeMessage(data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Connection) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
