package cmd

import "github.com/pterm/pterm"

// progresser drives a progress bar per mailbox. It does nothing in quiet mode.
type progresser struct {
	pbar *pterm.ProgressbarPrinter
}

func startProgress(title string, total uint32) *progresser {
	if global.quiet || total == 0 {
		return &progresser{}
	}
	pbar, err := pterm.DefaultProgressbar.WithTitle(title).WithTotal(int(total)).Start()
	if err != nil {
		return &progresser{}
	}
	return &progresser{pbar: pbar}
}

func (p *progresser) Increment() {
	if p.pbar == nil {
		return
	}
	p.pbar.Increment()
}

func (p *progresser) Stop() {
	if p.pbar == nil {
		return
	}
	_, _ = p.pbar.Stop()
	p.pbar = nil
}
