package chat

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamverse/realtime-gateway/logger"
)

// 每连接单写协程：排空 Send 队列（入队即发送顺序，FIFO），
// 兼做服务端 ping。gorilla 的 WriteMessage 不允许并发调用，
// 所有写都必须收敛到这里。

const firstPingDelay = 5 * time.Second // 首个 ping 延后，避免刚连上即写超时

func (s *Server) startWriter(cl *Client) {
	go func() {
		ticker := time.NewTicker(s.opts.PingInterval)
		first := time.NewTimer(firstPingDelay)
		defer func() {
			ticker.Stop()
			first.Stop()
			deadline := time.Now().Add(s.opts.WriteTimeout)
			_ = cl.ws.SetWriteDeadline(deadline)
			_ = cl.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			s.teardown(cl)
		}()

		for {
			select {
			case <-cl.done:
				return

			case <-cl.slow:
				logger.Infof("[ws] slow consumer, disconnecting conn=%s user=%s", cl.ConnID, cl.userID)
				return

			case payload := <-cl.Send:
				_ = cl.ws.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
				if err := cl.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
					logger.Infof("[ws] write err conn=%s user=%s err=%v", cl.ConnID, cl.userID, err)
					return
				}

			case <-first.C:
				if err := s.ping(cl); err != nil {
					return
				}

			case <-ticker.C:
				if err := s.ping(cl); err != nil {
					return
				}
				// 心跳顺带续期在线态
				s.sink.Touch(cl.userID, cl.ConnID)
			}
		}
	}()
}

func (s *Server) ping(cl *Client) error {
	deadline := time.Now().Add(s.opts.WriteTimeout)
	_ = cl.ws.SetWriteDeadline(deadline)
	if err := cl.ws.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
		logger.Infof("[ws] ping err conn=%s user=%s err=%v", cl.ConnID, cl.userID, err)
		return err
	}
	return nil
}
