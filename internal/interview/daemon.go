package interview

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Daemon is the main interviewer process. It connects to the chat platform
// via an Adapter, registers the slash commands, and pumps inbound events to
// the Coordinator.
type Daemon struct {
	adapter     Adapter
	coordinator *Coordinator
	out         io.Writer

	wg sync.WaitGroup
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	Adapter     Adapter
	Coordinator *Coordinator
	Out         io.Writer // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("interview: adapter is required")
	}
	if opts.Coordinator == nil {
		return nil, fmt.Errorf("interview: coordinator is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		adapter:     opts.Adapter,
		coordinator: opts.Coordinator,
		out:         out,
	}, nil
}

// Run connects the adapter, registers commands, and blocks until the context
// is cancelled or the adapter's event channel closes. Each event is handled
// on its own goroutine so channels progress independently. On shutdown it
// closes the adapter and waits for in-flight handlers.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Interviewer connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("interview: connect: %w", err)
	}

	// A failed registration leaves previously registered commands in place,
	// so the bot keeps running.
	if err := d.adapter.RegisterCommands(ctx, Commands()); err != nil {
		log.Printf("interview: register commands: %v", err)
	} else {
		fmt.Fprintf(d.out, "Slash commands registered\n")
	}

	events, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("interview: listen: %w", err)
	}

	fmt.Fprintf(d.out, "Interviewer online\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Interviewer shutting down...\n")
			if err := d.adapter.Close(); err != nil {
				log.Printf("interview: close adapter: %v", err)
			}
			d.wg.Wait()
			fmt.Fprintf(d.out, "Interviewer stopped\n")
			return nil

		case ev, ok := <-events:
			if !ok {
				fmt.Fprintf(d.out, "Interviewer event channel closed\n")
				d.wg.Wait()
				return nil
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.coordinator.Handle(ctx, ev)
			}()
		}
	}
}
