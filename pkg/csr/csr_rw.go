package csr

import "github.com/bassosimone/rv32sim/pkg/trapcause"

const validMieBits = mipSSIP | mipMSIP | mipSTIP | mipMTIP | mipSEIP | mipMEIP
const validCounterBits = counterCY | counterTM | counterIR
const mipMWritable = mipSSIP | mipSTIP | mipSEIP

// Read synthesizes the architectural value of csr from the bank's fields,
// failing with IllegalInstr if csr is not recognized, the current
// privilege is insufficient, or (for the counter shadow CSRs) the
// mcounteren/scounteren gate is closed. See spec.md §4.2.
func (b *Bank) Read(csr uint32, priv Privilege) (uint32, error) {
	switch csr {
	case addrSstatus:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		return b.mstatusBits() & sstatusMask, nil
	case addrSie:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		return b.IE & b.MIDeleg, nil
	case addrStvec:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		return encodeTVec(b.STVecBase, b.STVecMode), nil
	case addrScounter:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		return b.SCounterEn, nil
	case addrSenvcfg:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		if b.SFIOM {
			return 1, nil
		}
		return 0, nil
	case addrSscratch:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		return b.SScratch, nil
	case addrSepc:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		return b.SEPC, nil
	case addrScause:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		return b.SCause.Encode(), nil
	case addrStval:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		return b.STval, nil
	case addrSip:
		if err := b.requireS(priv, csr); err != nil {
			return 0, err
		}
		return b.IP & b.MIDeleg, nil
	case addrSatp:
		if err := b.checkSatpAccess(priv); err != nil {
			return 0, err
		}
		return b.readSatp(), nil

	case addrMstatus:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.mstatusBits(), nil
	case addrMisa:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return misaValue, nil
	case addrMedeleg:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.MEDeleg, nil
	case addrMideleg:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.MIDeleg, nil
	case addrMie:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.IE, nil
	case addrMtvec:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return encodeTVec(b.MTVecBase, b.MTVecMode), nil
	case addrMcounteren:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.MCounterEn, nil
	case addrMenvcfg:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		if b.MFIOM {
			return 1, nil
		}
		return 0, nil
	case addrMcntinhbt:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.MCountInhibit, nil
	case addrMscratch:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.MScratch, nil
	case addrMepc:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.MEPC, nil
	case addrMcause:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.MCause.Encode(), nil
	case addrMtval:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.MTval, nil
	case addrMip:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.IP, nil
	case addrMvendorid, addrMarchid, addrMimpid, addrMconfigptr:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return 0, nil
	case addrMhartid:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return b.HartID, nil
	case addrMcycle:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.MCycle), nil
	case addrMcycleh:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.MCycle >> 32), nil
	case addrMinstret:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.MInstret), nil
	case addrMinstreth:
		if err := b.requireM(priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.MInstret >> 32), nil

	case addrCycle:
		if err := b.requireCounter(counterCY, priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.MCycle), nil
	case addrCycleh:
		if err := b.requireCounter(counterCY, priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.MCycle >> 32), nil
	case addrTime:
		if err := b.requireCounter(counterTM, priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.time()), nil
	case addrTimeh:
		if err := b.requireCounter(counterTM, priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.time() >> 32), nil
	case addrInstret:
		if err := b.requireCounter(counterIR, priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.MInstret), nil
	case addrInstreth:
		if err := b.requireCounter(counterIR, priv, csr); err != nil {
			return 0, err
		}
		return uint32(b.MInstret >> 32), nil

	default:
		return 0, illegalCSR(csr)
	}
}

// Write decomposes value into the bank's fields, masking/coercing it per
// the WARL rules in spec.md §4.2, failing with IllegalInstr under the same
// conditions as Read plus the read-only CSRs.
func (b *Bank) Write(csr uint32, value uint32, priv Privilege) error {
	switch csr {
	case addrSstatus:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		b.writeSstatusBits(value)
		return nil
	case addrSie:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		b.IE = (b.IE &^ b.MIDeleg) | (value & b.MIDeleg)
		return nil
	case addrStvec:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		b.STVecBase, b.STVecMode = decodeTVecWrite(value)
		return nil
	case addrScounter:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		b.SCounterEn = value & validCounterBits
		return nil
	case addrSenvcfg:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		b.SFIOM = value&1 != 0
		return nil
	case addrSscratch:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		b.SScratch = value
		return nil
	case addrSepc:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		b.SEPC = value &^ 0x3
		return nil
	case addrScause:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		cause := trapcause.DecodeCause(value)
		if !validCause(cause) {
			return illegalCSR(csr)
		}
		b.SCause = cause
		return nil
	case addrStval:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		b.STval = value
		return nil
	case addrSip:
		if err := b.requireS(priv, csr); err != nil {
			return err
		}
		b.IP = (b.IP &^ mipSSIP) | (value & mipSSIP)
		return nil
	case addrSatp:
		if err := b.checkSatpAccess(priv); err != nil {
			return err
		}
		b.writeSatp(value)
		return nil

	case addrMstatus:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.writeMstatusBits(value)
		return nil
	case addrMisa:
		// WARL, no supported toggles: writes are silently ignored.
		return b.requireM(priv, csr)
	case addrMedeleg:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MEDeleg = (value & medelegMask) &^ (1 << 11)
		return nil
	case addrMideleg:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MIDeleg = value & midelegMask
		return nil
	case addrMie:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.IE = value & validMieBits
		return nil
	case addrMtvec:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MTVecBase, b.MTVecMode = decodeTVecWrite(value)
		return nil
	case addrMcounteren:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MCounterEn = value & validCounterBits
		return nil
	case addrMenvcfg:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MFIOM = value&1 != 0
		return nil
	case addrMcntinhbt:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MCountInhibit = value & (counterCY | counterIR)
		return nil
	case addrMscratch:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MScratch = value
		return nil
	case addrMepc:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MEPC = value &^ 0x3
		return nil
	case addrMcause:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		cause := trapcause.DecodeCause(value)
		if !validCause(cause) {
			return illegalCSR(csr)
		}
		b.MCause = cause
		return nil
	case addrMtval:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MTval = value
		return nil
	case addrMip:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.IP = (b.IP &^ mipMWritable) | (value & mipMWritable)
		return nil
	case addrMvendorid, addrMarchid, addrMimpid, addrMconfigptr, addrMhartid:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		return illegalCSR(csr)
	case addrMcycle:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MCycle = (b.MCycle &^ 0xffffffff) | uint64(value)
		return nil
	case addrMcycleh:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MCycle = (b.MCycle & 0xffffffff) | (uint64(value) << 32)
		return nil
	case addrMinstret:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MInstret = (b.MInstret &^ 0xffffffff) | uint64(value)
		return nil
	case addrMinstreth:
		if err := b.requireM(priv, csr); err != nil {
			return err
		}
		b.MInstret = (b.MInstret & 0xffffffff) | (uint64(value) << 32)
		return nil

	case addrCycle, addrCycleh, addrTime, addrTimeh, addrInstret, addrInstreth:
		// Read-only unprivileged shadow CSRs (top address bits encode a
		// read-only class).
		return illegalCSR(csr)

	default:
		return illegalCSR(csr)
	}
}

func validCause(c trapcause.Cause) bool {
	if c.Interrupt {
		return trapcause.IsKnownInterrupt(c.Code)
	}
	return trapcause.IsKnownException(c.Code)
}

func (b *Bank) checkSatpAccess(priv Privilege) error {
	if err := b.requireS(priv, addrSatp); err != nil {
		return err
	}
	if priv == S && b.TVM {
		return illegalCSR(addrSatp)
	}
	return nil
}

func (b *Bank) readSatp() uint32 {
	var v uint32
	if b.SatpMode == Sv32 {
		v |= 1 << 31
	}
	v |= b.SatpPPN & 0x3fffff
	return v
}

func (b *Bank) writeSatp(value uint32) {
	if value&(1<<31) != 0 {
		b.SatpMode = Sv32
	} else {
		b.SatpMode = Bare
	}
	b.SatpPPN = value & 0x3fffff
}
