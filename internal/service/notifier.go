package service

import (
	"sync"
	"time"

	"github.com/user/filmdiary/internal/model"
)

// EventType 通知类型
type EventType string

const (
	// EventDocumentChanged 用户文档已变更并写回
	EventDocumentChanged EventType = "document.changed"
	// EventOpenListModal 请求为某部电影打开“加入片单”弹窗
	EventOpenListModal EventType = "list-modal.open"
)

// Event 页面之间传递的通知
type Event struct {
	Type  EventType    `json:"type"`
	Movie *model.Movie `json:"movie,omitempty"`
	At    time.Time    `json:"at"`
}

// Notifier 发布/订阅，生命周期与文档存储一致
type Notifier struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

// NewNotifier 创建通知器，buffer 为每个订阅者的缓冲大小
func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 16
	}
	return &Notifier{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe 订阅通知，返回的函数用于取消订阅
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Event, n.buffer)
	if n.closed {
		close(ch)
		return ch, func() {}
	}

	id := n.nextID
	n.nextID++
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if c, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(c)
			}
		})
	}
}

// Publish 非阻塞发布，缓冲已满的订阅者会丢掉这条通知；返回送达数量
func (n *Notifier) Publish(e Event) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return 0
	}
	delivered := 0
	for _, ch := range n.subs {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers 当前订阅者数量
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Close 关闭所有订阅
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		close(ch)
		delete(n.subs, id)
	}
}
