package proxy

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/angeloszaimis/balancerd/internal/httpcodec"
	"github.com/angeloszaimis/balancerd/internal/metrics"
)

// handleConnection runs one client session: pick an upstream once, then
// proxy requests over that single upstream connection until the client
// hangs up or an unrecoverable error ends the session. Failover happens
// only here, at session start; mid-session upstream failures surface as 502.
func (s *Server) handleConnection(clientConn net.Conn) {
	defer clientConn.Close()

	clientIP := clientIPOf(clientConn)
	s.logger.Info("Connection received", slog.String("client", clientIP))

	upstreamConn, upstreamAddr, err := s.connectToUpstream()
	if err != nil {
		s.reject(clientConn, clientIP, http.StatusBadGateway, true)
		return
	}
	defer upstreamConn.Close()

	clientReader := bufio.NewReader(clientConn)
	upstreamReader := bufio.NewReader(upstreamConn)

	for {
		req, err := httpcodec.ReadRequest(clientReader)
		if err != nil {
			if httpcodec.IsClientClosed(err) {
				s.logger.Debug("Client finished sending requests", slog.String("client", clientIP))
				return
			}
			if httpcodec.IsConnectionError(err) {
				s.logger.Info("Error reading request from client",
					slog.String("client", clientIP),
					slog.Any("err", err))
				return
			}

			// Framing errors are recoverable: answer and keep the session.
			s.logger.Debug("Error parsing request",
				slog.String("client", clientIP),
				slog.Any("err", err))
			s.reject(clientConn, clientIP, httpcodec.StatusCode(err), false)
			continue
		}

		s.logger.Info("Forwarding request",
			slog.String("client", clientIP),
			slog.String("upstream", upstreamAddr),
			slog.String("request", httpcodec.FormatRequestLine(req)))

		if !s.limiter.Allow(clientIP) {
			s.reject(clientConn, clientIP, http.StatusTooManyRequests, true)
			return
		}

		// Let the upstream see the true originating client.
		httpcodec.ExtendHeader(req, "X-Forwarded-For", clientIP)

		if err := httpcodec.WriteRequest(req, upstreamConn); err != nil {
			s.logger.Error("Failed to send request to upstream",
				slog.String("upstream", upstreamAddr),
				slog.Any("err", err))
			s.reject(clientConn, clientIP, http.StatusBadGateway, true)
			return
		}

		resp, err := httpcodec.ReadResponse(upstreamReader, req.Method)
		if err != nil {
			s.logger.Error("Error reading response from upstream",
				slog.String("upstream", upstreamAddr),
				slog.Any("err", err))
			s.reject(clientConn, clientIP, http.StatusBadGateway, true)
			return
		}

		s.collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventRequestForwarded,
			Timestamp: time.Now(),
			Upstream:  upstreamAddr,
		})
		s.sendResponse(clientConn, clientIP, resp)
	}
}

// connectToUpstream keeps selecting and dialing until a connection succeeds
// or no alive upstream remains. Every failed dial demotes that address, so
// the loop is bounded by the size of the alive set.
func (s *Server) connectToUpstream() (net.Conn, string, error) {
	for {
		idx, addr, err := s.pool.Select()
		if err != nil {
			return nil, "", err
		}

		conn, dialErr := net.Dial("tcp", addr)
		if dialErr == nil {
			return conn, addr, nil
		}

		s.logger.Warn("Failed to connect to upstream, marking dead",
			slog.String("upstream", addr),
			slog.Any("err", dialErr))

		if s.pool.MarkDead(idx, addr) {
			s.collector.Emit(metrics.MetricEvent{
				Type:      metrics.EventUpstreamDead,
				Timestamp: time.Now(),
				Upstream:  addr,
			})
		}
	}
}

// reject originates an error response with the given status. closing marks
// the response as the session's last: keep-alive clients must be told the
// connection will not be reused.
func (s *Server) reject(clientConn net.Conn, clientIP string, status int, closing bool) {
	resp := httpcodec.NewErrorResponse(status)
	if closing {
		resp.Header.Set("Connection", "close")
	}

	s.collector.Emit(metrics.MetricEvent{
		Type:       metrics.EventRequestRejected,
		Timestamp:  time.Now(),
		StatusCode: status,
	})
	s.sendResponse(clientConn, clientIP, resp)
}

func (s *Server) sendResponse(clientConn net.Conn, clientIP string, resp *http.Response) {
	s.logger.Info("Sending response",
		slog.String("client", clientIP),
		slog.String("response", httpcodec.FormatResponseLine(resp)))

	if err := httpcodec.WriteResponse(resp, clientConn); err != nil {
		s.logger.Warn("Failed to send response to client",
			slog.String("client", clientIP),
			slog.Any("err", err))
	}
}

func clientIPOf(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
