package compute

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/VanDung-dev/HieraChain-ListView/bitmap"
	"github.com/VanDung-dev/HieraChain-ListView/listview"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

// TotEqChunked computes TotEq by splitting both inputs into at most chunks
// pieces and evaluating them concurrently. The result is identical to TotEq.
func TotEqChunked[O offset.Offset](ctx context.Context, left, right *listview.Array[O], chunks int) (bitmap.Bitmap, error) {
	return doChunked[O](ctx, totEqKernelImpl[O]{}, left, right, chunks)
}

// TotNeChunked is the concurrent form of TotNe.
func TotNeChunked[O offset.Offset](ctx context.Context, left, right *listview.Array[O], chunks int) (bitmap.Bitmap, error) {
	return doChunked[O](ctx, totNeKernelImpl[O]{}, left, right, chunks)
}

func doChunked[O offset.Offset](ctx context.Context, kernel listEqualityKernel[O], left, right *listview.Array[O], chunks int) (bitmap.Bitmap, error) {
	if err := checkInputs(left, right); err != nil {
		return bitmap.Bitmap{}, err
	}
	if chunks <= 1 || left.Len() < 2*chunks {
		return doAA(kernel, left, right)
	}

	size := (left.Len() + chunks - 1) / chunks
	var lefts, rights []*listview.Array[O]
	for l, r := left, right; l.Len() > 0; {
		n := min(size, l.Len())
		var lh, rh *listview.Array[O]
		lh, l = l.SplitAt(n)
		rh, r = r.SplitAt(n)
		lefts, rights = append(lefts, lh), append(rights, rh)
	}

	results := make([]bitmap.Bitmap, len(lefts))
	g, ctx := errgroup.WithContext(ctx)
	for i := range lefts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := bitmap.NewBuilder(lefts[i].Len())
			kernel.DoAA(out, lefts[i], rights[i])
			results[i] = out.Finish()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return bitmap.Bitmap{}, err
	}

	out := bitmap.NewBuilder(left.Len())
	for _, part := range results {
		out.AppendBitmap(part)
	}
	return out.Finish(), nil
}
