// Command promo is an interactive terminal calculator over the storefront catalog.
// Each quantity change re-renders the promotion breakdown.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/config"
	"github.com/noah-isme/backend-promo/internal/form"
	"github.com/noah-isme/backend-promo/internal/present"
	"github.com/noah-isme/backend-promo/internal/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("promo", flag.ExitOnError)
	catalogPath := fs.String("catalog", cfg.CatalogPath, "path to a JSON catalog (defaults to the built-in one)")
	locale := fs.String("locale", cfg.CurrencyLocale, "locale used to format amounts")
	_ = fs.Parse(os.Args[1:])

	products := catalog.Default()
	if *catalogPath != "" {
		products, err = catalog.Load(*catalogPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	s := &session{
		form:      form.New(pricing.NewEngine(cfg.PromotionRules()), products),
		formatter: present.NewFormatter(*locale),
		out:       os.Stdout,
	}
	if err := s.run(os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type session struct {
	form      *form.Form
	formatter present.Formatter
	out       io.Writer
}

func (s *session) run(in io.Reader) error {
	detach := s.form.Attach(s.render)
	defer detach()

	s.list()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if quit := s.exec(strings.Fields(scanner.Text())); quit {
			return nil
		}
	}
}

func (s *session) exec(args []string) (quit bool) {
	if len(args) == 0 {
		return false
	}
	switch strings.ToLower(args[0]) {
	case "list", "ls":
		s.list()
	case "set":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "usage: set <product-id> <quantity>")
			return false
		}
		raw := ""
		if len(args) > 2 {
			raw = args[2]
		}
		if err := s.form.SetQuantity(args[1], raw); err != nil {
			if errors.Is(err, form.ErrUnknownProduct) {
				fmt.Fprintf(s.out, "unknown product %q, try list\n", args[1])
				return false
			}
			fmt.Fprintln(s.out, err)
		}
	case "reset":
		s.form.Reset()
	case "show":
		s.render(s.form.Breakdown())
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintln(s.out, "commands: list, set <id> <qty>, reset, show, quit")
	}
	return false
}

func (s *session) list() {
	for _, row := range s.form.Rows() {
		var tags []string
		if row.Product.HalfPriceSecond {
			tags = append(tags, "2da al 50%")
		}
		if row.Product.ThreeForTwo {
			tags = append(tags, "3x2")
		}
		fmt.Fprintf(s.out, "%-16s %-24s $%10s  x%-4d %s\n",
			row.Product.ID, row.Product.Name, s.formatter.FormatCurrency(row.Product.Price), row.Quantity, strings.Join(tags, ", "))
	}
}

func (s *session) render(b pricing.Breakdown) {
	d := s.formatter.Render(b)
	fmt.Fprintf(s.out, "Total sin descuento:  $%s\n", d.TotalWithoutDiscount)
	fmt.Fprintf(s.out, "2da unidad al 50%%:   -$%s\n", d.HalfPriceDiscount)
	fmt.Fprintf(s.out, "3x2:                 -$%s\n", d.ThreeForTwoDiscount)
	fmt.Fprintf(s.out, "Descuento por monto: -$%s\n", d.BulkDiscount)
	fmt.Fprintf(s.out, "Total descuentos:    -$%s\n", d.TotalDiscounts)
	fmt.Fprintf(s.out, "Subtotal:             $%s\n", d.Subtotal)
	fmt.Fprintf(s.out, "Total:                $%s\n", d.Total)
}
