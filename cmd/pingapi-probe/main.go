// pingapi-probe sends a server list ping and prints every status response it
// receives until the pong arrives, so animated responses can be watched.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/charmbracelet/lipgloss"
	jp "github.com/go-mclib/protocol/java_protocol"
	ns "github.com/go-mclib/protocol/net_structures"

	"github.com/go-mclib/pingapi/pkg/reply"
	"github.com/go-mclib/pingapi/pkg/status"
)

var (
	frameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pongStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

type handshakeData struct {
	ProtocolVersion ns.VarInt
	ServerAddress   ns.String
	ServerPort      ns.UnsignedShort
	Intent          ns.VarInt
}

type statusRequestData struct{}

type pingData struct {
	Timestamp ns.Long
}

func main() {
	var (
		addr     string
		protocol int
		timeout  time.Duration
		verbose  bool
	)
	flag.StringVar(&addr, "s", "localhost:25565", "server address (host:port)")
	flag.IntVar(&protocol, "p", 765, "protocol version sent in the handshake")
	flag.DurationVar(&timeout, "t", 10*time.Second, "give up after this long without a pong")
	flag.BoolVar(&verbose, "v", false, "verbose packet logging")
	flag.Parse()

	logger := log.New(os.Stderr, "", 0)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := watch(ctx, addr, protocol, verbose, os.Stdout); err != nil {
		logger.Printf("ping %s: %v", addr, err)
		os.Exit(1)
	}
}

func splitAddress(addr string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// no port: the client resolves SRV records or uses 25565
		return addr, 25565, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("bad port %q: %w", portStr, err)
	}
	return host, uint16(port), nil
}

func watch(ctx context.Context, addr string, protocol int, verbose bool, out io.Writer) error {
	host, port, err := splitAddress(addr)
	if err != nil {
		return err
	}

	client := jp.NewTCPClient()
	client.EnableDebug(verbose)
	if err := client.Connect(addr); err != nil {
		return err
	}
	defer client.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = client.GetConn().SetDeadline(deadline)
	}

	handshake, err := jp.MarshalPacket(jp.StateHandshake, jp.C2S, ns.VarInt(status.HandshakeID), handshakeData{
		ProtocolVersion: ns.VarInt(protocol),
		ServerAddress:   ns.String(host),
		ServerPort:      ns.UnsignedShort(port),
		Intent:          status.IntentStatus,
	})
	if err != nil {
		return fmt.Errorf("build handshake: %w", err)
	}
	if err := client.WritePacket(handshake); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}
	client.SetState(jp.StateStatus)

	request, err := jp.MarshalPacket(jp.StateStatus, jp.C2S, ns.VarInt(status.StatusRequestID), statusRequestData{})
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	if err := client.WritePacket(request); err != nil {
		return fmt.Errorf("send status request: %w", err)
	}

	adapter := status.ForProtocol(protocol)
	var (
		frames int
		sentAt time.Time
	)
	for {
		p, err := client.ReadPacket()
		if err != nil {
			if frames > 0 {
				fmt.Fprintln(out, metaStyle.Render(fmt.Sprintf("no pong after %d frame(s): %v", frames, err)))
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch int32(p.PacketID) {
		case status.StatusResponseID:
			r, err := adapter.Decode(pk.Packet{ID: int32(p.PacketID), Data: p.Data}, nil)
			if err != nil {
				return err
			}
			frames++
			printFrame(out, frames, r)
			if frames == 1 {
				sentAt = time.Now()
				ping, err := jp.MarshalPacket(jp.StateStatus, jp.C2S, ns.VarInt(status.PingRequestID), pingData{Timestamp: ns.Long(sentAt.UnixMilli())})
				if err != nil {
					return fmt.Errorf("build ping: %w", err)
				}
				if err := client.WritePacket(ping); err != nil {
					return fmt.Errorf("send ping: %w", err)
				}
			}

		case status.PongResponseID:
			var pong pingData
			if err := jp.UnmarshalPacket(p, &pong); err != nil {
				return fmt.Errorf("read pong: %w", err)
			}
			fmt.Fprintln(out, pongStyle.Render(fmt.Sprintf("pong after %s, %d frame(s)",
				time.Since(time.UnixMilli(int64(pong.Timestamp))).Round(time.Millisecond), frames)))
			return nil

		default:
			return fmt.Errorf("%w: 0x%02x", status.ErrUnexpectedPacket, int32(p.PacketID))
		}
	}
}

func printFrame(out io.Writer, n int, r *reply.Reply) {
	fmt.Fprintf(out, "%s %s\n",
		metaStyle.Render(fmt.Sprintf("#%d", n)),
		frameStyle.Render(strings.ReplaceAll(reply.StripColorCodes(r.MOTD()), "\n", " | ")))
	fmt.Fprintln(out, metaStyle.Render(fmt.Sprintf("   %s (protocol %d), %d/%d players",
		reply.StripColorCodes(r.ProtocolName()), r.ProtocolVersion(), r.OnlinePlayers(), r.MaxPlayers())))
	if sample := r.PlayerSample(); len(sample) > 0 {
		fmt.Fprintln(out, metaStyle.Render("   "+strings.Join(sample, ", ")))
	}
}
