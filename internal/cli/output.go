package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output — вывод CLI.
//
// Контракт: stdout несёт только данные (таблицы, либо JSON при --json),
// сообщения о ходе работы уходят в stderr. Так вывод остаётся
// пригодным для конвейера (см. doc.go).
type Output struct {
	jsonMode bool
	data     io.Writer
	messages io.Writer
}

// NewOutput создаёт Output; jsonMode переключает данные на JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		data:     os.Stdout,
		messages: os.Stderr,
	}
}

// Print выводит табличные данные; при --json вместо них уходит jsonData.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.printJSON(jsonData)
		return
	}

	o.tabbed(func(tw io.Writer) {
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		fmt.Fprintln(tw, underline(headers))
		for _, row := range rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	})
}

// PrintKV выводит пары ключ-значение; при --json вместо них уходит jsonData.
func (o *Output) PrintKV(pairs [][2]string, jsonData any) {
	if o.jsonMode {
		o.printJSON(jsonData)
		return
	}

	o.tabbed(func(tw io.Writer) {
		for _, p := range pairs {
			fmt.Fprintf(tw, "%s:\t%s\n", p[0], p[1])
		}
	})
}

// Success сообщает об успехе операции — в stderr, мимо конвейера.
func (o *Output) Success(format string, args ...any) {
	fmt.Fprintf(o.messages, format+"\n", args...)
}

// tabbed выполняет write поверх tabwriter, выравнивающего колонки.
func (o *Output) tabbed(write func(tw io.Writer)) {
	tw := tabwriter.NewWriter(o.data, 0, 0, 2, ' ', 0)
	write(tw)
	tw.Flush()
}

func (o *Output) printJSON(v any) {
	enc := json.NewEncoder(o.data)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// underline — строка-подчёркивание под заголовками таблицы.
func underline(headers []string) string {
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	return strings.Join(dashes, "\t")
}
