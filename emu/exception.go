package emu

// Exception vector addresses.
const (
	VectorReset     uint32 = 0x00
	VectorUndefined uint32 = 0x04
	VectorSWI       uint32 = 0x08
)

// EnterException switches to mode, saves the old CPSR in the new mode's
// SPSR, writes returnAddr to its link register, masks IRQs (and FIQs for
// FIQ mode), selects ARM state and jumps to vector.
func (r *RegFile) EnterException(mode Mode, vector, returnAddr uint32) error {
	cpsr := r.CPSR()

	if err := r.EnterMode(mode); err != nil {
		return err
	}
	if err := r.SetSPSR(cpsr); err != nil {
		return err
	}

	r.WriteReg(RegLR, returnAddr)
	r.SetIRQDisabled(true)
	if mode == ModeFIQ {
		r.SetFIQDisabled(true)
	}
	r.SetThumb(false)
	r.SetPC(vector)

	return nil
}
