package main

import (
	"community-pulse/client"
	"community-pulse/domain"
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type printer struct {
	out     io.Writer
	colours bool
}

func (p printer) paint(style color.Style, s string) string {
	if !p.colours {
		return s
	}
	return style.Render(s)
}

func (p printer) schedule(s domain.DailySchedule) {
	fmt.Fprintln(p.out, p.paint(color.New(color.BgBlack, color.FgGreen), fmt.Sprintf("  ====== Prayer times: %s ======", s.Location)))
	table := tablewriter.NewWriter(p.out)
	table.SetHeader([]string{"Prayer", "Time"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, instant := range s.Instants() {
		table.Append([]string{instant.Name, instant.At.String()})
	}
	table.Render()
}

func (p printer) toast(n domain.Notification) {
	fmt.Fprintf(p.out, "%s %s\n",
		p.paint(color.New(color.FgCyan, color.OpBold), "["+n.Title+"]"),
		n.Message)
}

func (p printer) connection(s client.State) {
	style := color.New(color.FgRed)
	switch s {
	case client.Joined:
		style = color.New(color.FgGreen)
	case client.Connecting:
		style = color.New(color.FgYellow)
	}
	fmt.Fprintln(p.out, p.paint(style, "● "+s.String()))
}

func (p printer) countdown(next domain.NextEventState, unread int) {
	fmt.Fprintf(p.out, "Next: %s in %s | unread: %d\n", next.Name, next.Countdown(), unread)
}
