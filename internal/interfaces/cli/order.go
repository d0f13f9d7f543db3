package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/preventa/internal/application/ordering"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
)

// NewOrderCommand crea el grupo de comandos de pedidos.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Toma de pedidos sobre la base local",
	}
	cmd.AddCommand(newOrderNewCommand(rootOpts))
	cmd.AddCommand(newOrderAddCommand(rootOpts))
	cmd.AddCommand(newOrderQtyCommand(rootOpts))
	cmd.AddCommand(newOrderDiscountCommand(rootOpts))
	cmd.AddCommand(newOrderRmCommand(rootOpts))
	cmd.AddCommand(newOrderTermCommand(rootOpts))
	cmd.AddCommand(newOrderNoteCommand(rootOpts))
	cmd.AddCommand(newOrderCancelCommand(rootOpts))
	cmd.AddCommand(newOrderShowCommand(rootOpts))
	cmd.AddCommand(newOrderListCommand(rootOpts))
	return cmd
}

// withOrdering abre la base del tenant y ejecuta fn con el caso de uso de pedidos.
func withOrdering(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error) error {
	return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
		h, err := rt.open(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, rt, ordering.NewUseCase(h, rt.log))
	})
}

func newOrderNewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new <cliente>",
		Short: "Abre un pedido para el cliente (o devuelve el que ya tiene abierto)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				doc, err := uc.NextDocumentNumber(ctx, args[0])
				if err != nil {
					return err
				}
				if rt.asJSON() {
					return rt.emit(map[string]int64{"document_number": doc})
				}
				rt.printf("%d\n", doc)
				return nil
			})
		},
	}
}

type addOptions struct {
	price          string
	discount       string
	discountAmount string
	surcharge      string
}

func newOrderAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add <pedido> <producto> <cantidad>",
		Short: "Agrega o reemplaza la línea de un producto",
		Long: `Sin --price usa el precio de lista del producto. --discount es porcentual
(10 = 10 %) y --discount-amount en monto; no se pueden usar juntos.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDoc(args[0])
			if err != nil {
				return err
			}
			qty, err := parseDecimal("cantidad", args[2])
			if err != nil {
				return err
			}
			discount, err := parseDiscount(opts.discount, opts.discountAmount)
			if err != nil {
				return err
			}
			surcharge, err := optionalDecimal("surcharge", opts.surcharge)
			if err != nil {
				return err
			}
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				price, err := unitPrice(ctx, rt, args[1], opts.price)
				if err != nil {
					return err
				}
				view, err := uc.AddLine(ctx, doc, args[1], qty, price, discount, surcharge)
				if err != nil {
					return err
				}
				return printOrder(rt, view)
			})
		},
	}
	cmd.Flags().StringVar(&opts.price, "price", "", "precio unitario pactado")
	cmd.Flags().StringVar(&opts.discount, "discount", "", "descuento porcentual")
	cmd.Flags().StringVar(&opts.discountAmount, "discount-amount", "", "descuento en monto")
	cmd.Flags().StringVar(&opts.surcharge, "surcharge", "", "recargo en monto")
	cmd.MarkFlagsMutuallyExclusive("discount", "discount-amount")
	return cmd
}

// unitPrice precio indicado o, si no se indicó, el de lista del producto.
func unitPrice(ctx context.Context, rt *runtime, productCode, flag string) (decimal.Decimal, error) {
	if flag != "" {
		return parseDecimal("price", flag)
	}
	h, err := rt.open(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	p, err := h.Repos().Products.GetByCode(ctx, strings.TrimSpace(productCode))
	if err != nil {
		return decimal.Zero, err
	}
	if p == nil {
		return decimal.Zero, fmt.Errorf("producto %s: %w", productCode, domain.ErrNotFound)
	}
	return p.Price, nil
}

func newOrderQtyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "qty <pedido> <producto> <cantidad>",
		Short: "Cambia la cantidad de una línea",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDoc(args[0])
			if err != nil {
				return err
			}
			qty, err := parseDecimal("cantidad", args[2])
			if err != nil {
				return err
			}
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				view, err := uc.UpdateLineQuantity(ctx, doc, args[1], qty)
				if err != nil {
					return err
				}
				return printOrder(rt, view)
			})
		},
	}
}

func newOrderDiscountCommand(rootOpts *RootOptions) *cobra.Command {
	var amount bool
	cmd := &cobra.Command{
		Use:   "discount <pedido> <producto> <valor>",
		Short: "Reemplaza el descuento de una línea (0 lo quita)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDoc(args[0])
			if err != nil {
				return err
			}
			v, err := parseDecimal("descuento", args[2])
			if err != nil {
				return err
			}
			discount := entity.PercentDiscount(v)
			if amount {
				discount = entity.AmountDiscount(v)
			}
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				view, err := uc.ApplyDiscount(ctx, doc, args[1], discount)
				if err != nil {
					return err
				}
				return printOrder(rt, view)
			})
		},
	}
	cmd.Flags().BoolVar(&amount, "amount", false, "el valor es un monto, no un porcentaje")
	return cmd
}

func newOrderRmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <pedido> <producto>",
		Short: "Quita una línea; sin líneas el pedido se cancela",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDoc(args[0])
			if err != nil {
				return err
			}
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				cancelled, err := uc.DeleteLine(ctx, doc, args[1])
				if err != nil {
					return err
				}
				if rt.asJSON() {
					return rt.emit(map[string]bool{"cancelled": cancelled})
				}
				if cancelled {
					rt.printf("pedido %d cancelado: sin líneas\n", doc)
					return nil
				}
				view, err := uc.GetOrder(ctx, doc)
				if err != nil {
					return err
				}
				return printOrder(rt, view)
			})
		},
	}
}

func newOrderTermCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "term <pedido> <condición>",
		Short: "Cambia la condición de pago del pedido",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDoc(args[0])
			if err != nil {
				return err
			}
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				view, err := uc.SetPaymentTerm(ctx, doc, args[1])
				if err != nil {
					return err
				}
				return printOrder(rt, view)
			})
		},
	}
}

func newOrderNoteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "note <pedido> <texto...>",
		Short: "Fija la observación del pedido",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDoc(args[0])
			if err != nil {
				return err
			}
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				view, err := uc.SetObservation(ctx, doc, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return printOrder(rt, view)
			})
		},
	}
}

func newOrderCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <pedido>",
		Short: "Elimina un pedido pendiente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDoc(args[0])
			if err != nil {
				return err
			}
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				if err := uc.Cancel(ctx, doc); err != nil {
					return err
				}
				rt.printf("pedido %d cancelado\n", doc)
				return nil
			})
		},
	}
}

func newOrderShowCommand(rootOpts *RootOptions) *cobra.Command {
	var recompute bool
	cmd := &cobra.Command{
		Use:   "show <pedido>",
		Short: "Muestra cabecera y líneas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDoc(args[0])
			if err != nil {
				return err
			}
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				if recompute {
					if _, err := uc.RecomputeTotals(ctx, doc); err != nil {
						return err
					}
				}
				view, err := uc.GetOrder(ctx, doc)
				if err != nil {
					return err
				}
				return printOrder(rt, view)
			})
		},
	}
	cmd.Flags().BoolVar(&recompute, "recompute", false, "recalcular totales antes de mostrar")
	return cmd
}

func newOrderListCommand(rootOpts *RootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lista pedidos por estado",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOrdering(cmd, rootOpts, func(ctx context.Context, rt *runtime, uc *ordering.UseCase) error {
				headers, err := uc.ListOrders(ctx, status)
				if err != nil {
					return err
				}
				if rt.asJSON() {
					out := make([]headerOutput, 0, len(headers))
					for _, h := range headers {
						out = append(out, toHeaderOutput(h))
					}
					return rt.emit(out)
				}
				w := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PEDIDO\tCLIENTE\tESTADO\tÍTEMS\tTOTAL\tFECHA")
				for _, h := range headers {
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", h.DocumentNumber, h.ClientCode, h.Status, h.ItemCount,
						h.NetTotal.StringFixed(2), h.IssuedAt.Local().Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "pending|sent (vacío = todos)")
	return cmd
}

// ── salida ───────────────────────────────────────────────────────────────────

type headerOutput struct {
	DocumentNumber  int64      `json:"document_number"`
	ClientCode      string     `json:"client_code"`
	SalespersonCode string     `json:"salesperson_code"`
	PaymentTermCode string     `json:"payment_term_code"`
	Status          string     `json:"status"`
	IssuedAt        time.Time  `json:"issued_at"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	ItemCount       int        `json:"item_count"`
	GrossTotal      string     `json:"gross_total"`
	DiscountTotal   string     `json:"discount_total"`
	SurchargeTotal  string     `json:"surcharge_total"`
	NetTotal        string     `json:"net_total"`
	Observation     string     `json:"observation,omitempty"`
	SyncKey         string     `json:"sync_key"`
}

type lineOutput struct {
	ProductCode    string `json:"product_code"`
	Description    string `json:"description"`
	Quantity       string `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	DiscountPct    string `json:"discount_pct"`
	DiscountAmount string `json:"discount_amount"`
	Surcharge      string `json:"surcharge"`
	LineTotal      string `json:"line_total"`
}

func toHeaderOutput(h *entity.OrderHeader) headerOutput {
	return headerOutput{
		DocumentNumber:  h.DocumentNumber,
		ClientCode:      h.ClientCode,
		SalespersonCode: h.SalespersonCode,
		PaymentTermCode: h.PaymentTermCode,
		Status:          h.Status,
		IssuedAt:        h.IssuedAt,
		SentAt:          h.SentAt,
		ItemCount:       h.ItemCount,
		GrossTotal:      h.GrossTotal.String(),
		DiscountTotal:   h.DiscountTotal.String(),
		SurchargeTotal:  h.SurchargeTotal.String(),
		NetTotal:        h.NetTotal.String(),
		Observation:     h.Observation,
		SyncKey:         h.SyncKey,
	}
}

func printOrder(rt *runtime, view *ordering.OrderView) error {
	if rt.asJSON() {
		lines := make([]lineOutput, 0, len(view.Lines))
		for _, l := range view.Lines {
			lines = append(lines, lineOutput{
				ProductCode:    l.ProductCode,
				Description:    l.Description,
				Quantity:       l.Quantity.String(),
				UnitPrice:      l.UnitPrice.String(),
				DiscountPct:    l.DiscountPct.String(),
				DiscountAmount: l.DiscountAmount.String(),
				Surcharge:      l.SurchargeAmount.String(),
				LineTotal:      l.LineTotal.String(),
			})
		}
		return rt.emit(struct {
			Header headerOutput `json:"header"`
			Lines  []lineOutput `json:"lines"`
		}{toHeaderOutput(view.Header), lines})
	}

	h := view.Header
	rt.printf("pedido %d  cliente %s  vendedor %s  condición %s  [%s]\n",
		h.DocumentNumber, h.ClientCode, h.SalespersonCode, h.PaymentTermCode, h.Status)
	if h.Observation != "" {
		rt.printf("obs: %s\n", h.Observation)
	}
	w := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PRODUCTO\tCANT.\tPRECIO\tDESC.\tRECARGO\tTOTAL\t")
	for _, l := range view.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", l.ProductCode, l.Quantity.String(), l.UnitPrice.StringFixed(2),
			l.DiscountAmount.StringFixed(2), l.SurchargeAmount.StringFixed(2), l.LineTotal.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	rt.printf("bruto %s  descuento %s  recargo %s  neto %s  (%d ítems)\n",
		h.GrossTotal.StringFixed(2), h.DiscountTotal.StringFixed(2), h.SurchargeTotal.StringFixed(2),
		h.NetTotal.StringFixed(2), h.ItemCount)
	return nil
}

// ── parseo ───────────────────────────────────────────────────────────────────

// parseDecimal acepta coma decimal ("1,5").
func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, domain.NewValidationError(field, "número inválido %q", s)
	}
	return d, nil
}

func optionalDecimal(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return parseDecimal(field, s)
}

func parseDiscount(pct, amount string) (entity.Discount, error) {
	switch {
	case pct != "":
		v, err := parseDecimal("discount", pct)
		return entity.PercentDiscount(v), err
	case amount != "":
		v, err := parseDecimal("discount_amount", amount)
		return entity.AmountDiscount(v), err
	default:
		return entity.Discount{}, nil
	}
}
