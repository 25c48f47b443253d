package trace

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vmsim/mem/vm"
)

const sampleInput = `# process/vma/page reference generator
# procs=2 numvma=2 min_vma=10 max_vma=20
2
#### process 0
#
2
0 9 0 0
20 35 1 1
#### process 1
#
1
0 63 0 0
# instructions
c 0
r 5

w 21
e 0
c 1
`

var _ = Describe("Reader", func() {
	It("should read the processes and the instructions", func() {
		r := NewReader(strings.NewReader(sampleInput))

		procs, err := r.ReadProcesses()
		Expect(err).NotTo(HaveOccurred())
		Expect(procs).To(HaveLen(2))
		Expect(procs[0].ID).To(Equal(vm.PID(0)))
		Expect(procs[0].VMAs).To(Equal([]vm.VMA{
			{StartPage: 0, EndPage: 9},
			{StartPage: 20, EndPage: 35, WriteProtected: true, FileMapped: true},
		}))
		Expect(procs[1].ID).To(Equal(vm.PID(1)))
		Expect(procs[1].VMAs).To(Equal([]vm.VMA{{StartPage: 0, EndPage: 63}}))

		insts := []vm.Instruction{}
		for {
			inst, ok, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			if !ok {
				break
			}
			insts = append(insts, inst)
		}

		Expect(insts).To(Equal([]vm.Instruction{
			{Op: vm.OpContextSwitch, Operand: 0},
			{Op: vm.OpRead, Operand: 5},
			{Op: vm.OpWrite, Operand: 21},
			{Op: vm.OpExit, Operand: 0},
			{Op: vm.OpContextSwitch, Operand: 1},
		}))
	})

	It("should accept a process without VMAs", func() {
		r := NewReader(strings.NewReader("1\n0\n"))

		procs, err := r.ReadProcesses()

		Expect(err).NotTo(HaveOccurred())
		Expect(procs[0].VMAs).To(BeEmpty())
	})

	DescribeTable("malformed preambles",
		func(input string, line int) {
			r := NewReader(strings.NewReader(input))

			_, err := r.ReadProcesses()

			Expect(errors.Is(err, ErrMalformed)).To(BeTrue())
			Expect(r.Line()).To(Equal(line))
		},
		Entry("non-numeric count", "x\n", 1),
		Entry("negative count", "-1\n", 1),
		Entry("missing process", "2\n1\n0 3 0 0\n", 4),
		Entry("missing VMA", "1\n2\n0 3 0 0\n", 4),
		Entry("short VMA", "1\n1\n0 3 0\n", 3),
		Entry("VMA out of range", "1\n1\n0 64 0 0\n", 3),
		Entry("reversed VMA", "1\n1\n5 3 0 0\n", 3),
		Entry("bad flag", "1\n1\n0 3 2 0\n", 3),
		Entry("non-numeric VMA field", "1\n1\n0 a 0 0\n", 3),
	)

	DescribeTable("malformed instructions",
		func(line string) {
			r := NewReader(strings.NewReader("0\n" + line + "\n"))
			_, err := r.ReadProcesses()
			Expect(err).NotTo(HaveOccurred())

			_, ok, err := r.Next()

			Expect(ok).To(BeFalse())
			Expect(errors.Is(err, ErrMalformed)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("line 2"))
		},
		Entry("unknown operation", "x 1"),
		Entry("missing operand", "r"),
		Entry("extra field", "r 1 2"),
		Entry("non-numeric operand", "r a"),
		Entry("long operation", "rw 1"),
	)
})

var _ = Describe("CountInstructions", func() {
	It("should count the instructions after the preamble", func() {
		n, err := CountInstructions(strings.NewReader(sampleInput))

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(uint64(5)))
	})

	It("should fail on a malformed instruction", func() {
		_, err := CountInstructions(strings.NewReader("0\nc 0\nz 1\n"))

		Expect(errors.Is(err, ErrMalformed)).To(BeTrue())
	})
})

var _ = Describe("ReadRandomSequence", func() {
	It("should read the announced values", func() {
		values, err := ReadRandomSequence(strings.NewReader("3\n7\n0\n 12 \n99\n"))

		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(Equal([]int{7, 0, 12}))
	})

	DescribeTable("malformed random files",
		func(input string) {
			_, err := ReadRandomSequence(strings.NewReader(input))

			Expect(errors.Is(err, ErrMalformed)).To(BeTrue())
		},
		Entry("empty", ""),
		Entry("zero count", "0\n"),
		Entry("bad count", "x\n1\n"),
		Entry("too few values", "3\n1\n2\n"),
		Entry("negative value", "2\n1\n-2\n"),
	)
})
