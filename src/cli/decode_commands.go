package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"semanticdb-lsp/src/internal/common"
	rpc "semanticdb-lsp/src/server/protocol"
)

// messagePrinter prints one line per decoded message
type messagePrinter struct {
	w     io.Writer
	count int
}

func (p *messagePrinter) HandleRequest(method string, id interface{}, params json.RawMessage) error {
	p.count++
	fmt.Fprintf(p.w, "request      id=%s method=%s params=%d bytes\n", rawID(id), method, len(params))
	return nil
}

func (p *messagePrinter) HandleResponse(id interface{}, result json.RawMessage, err *rpc.RPCError) error {
	p.count++
	if err != nil {
		fmt.Fprintf(p.w, "response     id=%s error=%d %s\n", rawID(id), err.Code, err.Message)
		return nil
	}
	fmt.Fprintf(p.w, "response     id=%s result=%d bytes\n", rawID(id), len(result))
	return nil
}

func (p *messagePrinter) HandleNotification(method string, params json.RawMessage) error {
	p.count++
	fmt.Fprintf(p.w, "notification method=%s params=%d bytes\n", method, len(params))
	return nil
}

func rawID(id interface{}) string {
	if raw, ok := id.(json.RawMessage); ok {
		return string(raw)
	}
	return fmt.Sprint(id)
}

// RunDecode splits the framed stream in path ("-" for stdin) into messages
// and prints a summary line for each. Framing limits come from the config.
func RunDecode(ctx context.Context, w io.Writer, stdin io.Reader, path, configPath string) error {
	cfg := LoadConfigForCLI(configPath, Overrides{})

	in := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}

	printer := &messagePrinter{w: w}
	codec := rpc.NewCodec("decode", rpc.ReaderOptions{
		MaxHeaderBytes: cfg.Framing.MaxHeaderBytes,
		ReadChunkSize:  cfg.Framing.ReadChunkSize,
	})
	err := codec.HandleStream(ctx, in, printer)
	fmt.Fprintf(w, "%d messages\n", printer.count)
	if err != nil {
		common.CLILogger.Debug("Stream ended with %s", common.GetErrorCategory(err))
		return fmt.Errorf("stream %s: %w", path, err)
	}
	return nil
}
