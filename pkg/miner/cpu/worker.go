package cpu

import (
	"sync/atomic"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

// search is the state shared by the workers of one Run. header, target and
// hasher are read-only; stopped and cause are the only shared mutable state.
type search struct {
	header   []byte
	target   miner.Target
	hasher   miner.Hasher
	batch    miner.BatchHasher // nil when the hasher has no four-way path
	attempts *atomic.Uint64

	stopped atomic.Bool
	cause   atomic.Int32
}

// stop records why the search ends, unless a cause is already recorded,
// and tells every worker to leave its loop.
func (s *search) stop(cause int32) {
	s.cause.CompareAndSwap(causeNone, cause)
	s.stopped.Store(true)
}

// halt tells every worker to leave its loop without recording a cause.
func (s *search) halt() {
	s.stopped.Store(true)
}

// work walks r in increasing nonce order until a digest meets the target,
// the range ends or the stop flag is raised.
func (s *search) work(r miner.NonceRange) miner.WorkerResult {
	last, ok := r.Last()
	if !ok {
		return miner.WorkerResult{}
	}

	var pending uint64
	defer func() {
		s.attempts.Add(pending)
	}()

	nonce := r.Start
	if s.batch != nil {
		var nonces [4]uint64
		var digests [4]miner.Digest
		for last-nonce >= 3 {
			if s.stopped.Load() {
				return miner.WorkerResult{}
			}
			nonces = [4]uint64{nonce, nonce + 1, nonce + 2, nonce + 3}
			s.batch.DigestX4(s.header, &nonces, &digests)
			pending += 4
			for i := range digests {
				if miner.MeetsTarget(digests[i], &s.target) {
					return s.found(nonces[i], digests[i])
				}
			}
			if pending >= flushInterval {
				s.attempts.Add(pending)
				pending = 0
			}
			if nonce+3 == last {
				return miner.WorkerResult{}
			}
			nonce += 4
		}
	}

	for {
		if s.stopped.Load() {
			return miner.WorkerResult{}
		}
		digest := s.hasher.Digest(s.header, nonce)
		pending++
		if miner.MeetsTarget(digest, &s.target) {
			return s.found(nonce, digest)
		}
		if pending >= flushInterval {
			s.attempts.Add(pending)
			pending = 0
		}
		if nonce == last {
			return miner.WorkerResult{}
		}
		nonce++
	}
}

func (s *search) found(nonce uint64, digest miner.Digest) miner.WorkerResult {
	s.stop(causeFound)
	return miner.WorkerResult{Found: true, Nonce: nonce, Digest: digest}
}
