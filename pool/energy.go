package pool

// Energy computes the non-negative, lower-is-better priority score for a
// RawPool snapshot (spec.md §4.4). The initial empty-state seed always
// scores 0 so it is dequeued first.
func Energy(p RawPool, cfg AbstractConfig) int {
	energy := 0
	attackParents := 0

	for _, chain := range p.Pending {
		if len(chain) == 0 {
			continue
		}
		nonces := SortedNonces(chain)
		head := chain[nonces[0]]

		switch {
		case uint64(head.Type) == 3 && len(head.BlobVersionedHashes) > 0:
			energy += 2 * len(chain)
			fee := head.MaxFeePerBlobGas.ToInt().Uint64()
			if fee < 10 || fee > 1000 {
				energy += 5
			}
		case uint64(head.Type) == 3:
			energy += 15 * len(chain)
		case !head.Malformed() && head.HeadPrice() == cfg.NormalPrice:
			energy += 3 * len(chain)
		default:
			attackParents++
			for _, nonce := range nonces {
				rec := chain[nonce]
				if rec.Malformed() {
					continue
				}
				if rec.Value.ToInt().Uint64() <= cfg.ChildValueThreshold {
					energy++
				}
			}
		}
	}

	for i := 0; i < attackParents; i++ {
		energy += 4 + i
	}

	return energy
}
