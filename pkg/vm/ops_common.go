package vm

import "github.com/n3fullnode/neofull/pkg/vm/stackitem"

// toInt extracts a machine-sized int from an integer-like item, used
// by opcodes whose operand is a small index/count rather than an
// arbitrary 256-bit value (PICK, ROLL, XDROP, NEWARRAY's count, ...).
func toInt(it stackitem.Item) (int, error) {
	n, err := stackitem.ToBigInteger(it)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, stackitem.ErrInvalidType
	}
	return int(n.Int64()), nil
}

func newInt(n int64) stackitem.Item { return stackitem.NewInteger(n) }
