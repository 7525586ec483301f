package integration_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/oberon0/risc0/pkg/oberon"
	"github.com/oberon0/risc0/pkg/parser"
	"github.com/oberon0/risc0/pkg/vm"
)

// stackBase is chosen well past any test program's instruction count so
// that frame-relative variable addresses never alias the loaded code.
const stackBase = 200

// literalStackBase matches the stack_base spec.md §8's end-to-end
// scenarios are stated against, so the expected memory windows below can
// be quoted verbatim from the spec rather than recomputed per symbol.
const literalStackBase = 100

func wordAt(machine *vm.VM, base, offset int32) int32 {
	words, err := machine.Memory(int(base+offset), 1)
	Expect(err).NotTo(HaveOccurred())
	return words[0]
}

var _ = Describe("compiling and running an Oberon-0 module", func() {
	It("assigns a constant to a variable", func() {
		machine, result, err := oberon.CompileAndRun(
			"MODULE M; VAR x: INTEGER; BEGIN x := 7 END M.", stackBase, 100)
		Expect(err).NotTo(HaveOccurred())

		x := result.Scope.Lookup("x")
		Expect(wordAt(machine, stackBase, int32(x.Address))).To(Equal(int32(7)))
	})

	It("respects multiplication precedence over addition", func() {
		machine, result, err := oberon.CompileAndRun(
			"MODULE M; VAR x: INTEGER; BEGIN x := 2+3*4 END M.", stackBase, 100)
		Expect(err).NotTo(HaveOccurred())

		x := result.Scope.Lookup("x")
		Expect(wordAt(machine, stackBase, int32(x.Address))).To(Equal(int32(14)))
	})

	It("takes the THEN branch when the condition holds", func() {
		machine, result, err := oberon.CompileAndRun(
			"MODULE M; VAR x: INTEGER; BEGIN x := 0; IF x=0 THEN x := 1 ELSE x := 2 END END M.",
			stackBase, 100)
		Expect(err).NotTo(HaveOccurred())

		x := result.Scope.Lookup("x")
		Expect(wordAt(machine, stackBase, int32(x.Address))).To(Equal(int32(1)))
	})

	It("takes the ELSE branch when the condition fails", func() {
		machine, result, err := oberon.CompileAndRun(
			"MODULE M; VAR x: INTEGER; BEGIN x := 5; IF x=0 THEN x := 1 ELSE x := 2 END END M.",
			stackBase, 100)
		Expect(err).NotTo(HaveOccurred())

		x := result.Scope.Lookup("x")
		Expect(wordAt(machine, stackBase, int32(x.Address))).To(Equal(int32(2)))
	})

	It("sums a range with a WHILE loop", func() {
		machine, result, err := oberon.CompileAndRun(
			`MODULE M; VAR i, sum: INTEGER;
			 BEGIN i := 0; sum := 0;
			   WHILE i#5 DO sum := sum+i; i := i+1 END
			 END M.`, stackBase, 200)
		Expect(err).NotTo(HaveOccurred())

		sum := result.Scope.Lookup("sum")
		Expect(wordAt(machine, stackBase, int32(sum.Address))).To(Equal(int32(0 + 1 + 2 + 3 + 4)))
	})

	It("writes array elements through a variable index", func() {
		machine, result, err := oberon.CompileAndRun(
			`MODULE M; VAR a: ARRAY 5 OF INTEGER; i: INTEGER;
			 BEGIN i := 0;
			   WHILE i#5 DO a[i] := i*2; i := i+1 END
			 END M.`, stackBase, 300)
		Expect(err).NotTo(HaveOccurred())

		a := result.Scope.Lookup("a")
		Expect(a.Size).To(Equal(5))
		for idx := int32(0); idx < 5; idx++ {
			Expect(wordAt(machine, stackBase, int32(a.Address)+idx)).To(Equal(idx * 2))
		}
	})

	It("reports ErrMaxCycleReached when a loop never terminates", func() {
		_, _, err := oberon.CompileAndRun(
			"MODULE M; VAR x: INTEGER; BEGIN x := 0; WHILE 1=1 DO x := x+1 END END M.",
			stackBase, 10)
		Expect(err).To(MatchError(vm.ErrMaxCycleReached))
	})

	It("reports an undefined symbol instead of compiling", func() {
		_, err := oberon.Compile("MODULE M; BEGIN x := 1 END M.")
		Expect(err).To(MatchError(parser.ErrUndefinedSymbol))
	})

	// The following reproduce spec.md §8's six end-to-end scenarios
	// literally: slot 0 of each module's memory window is reserved for
	// the module symbol itself, ahead of every declared variable, so
	// the expected words below are quoted directly from the spec rather
	// than derived from a looked-up symbol address.

	It("scenario 2: assigns constants and a copy, module slot 0 reserved", func() {
		machine, _, err := oberon.CompileAndRun(
			"MODULE T; VAR x,y: INTEGER; BEGIN x:=42; y:=x END T.",
			literalStackBase, 50)
		Expect(err).NotTo(HaveOccurred())

		Expect(wordAt(machine, literalStackBase, 0)).To(Equal(int32(0)))
		Expect(wordAt(machine, literalStackBase, 1)).To(Equal(int32(42)))
		Expect(wordAt(machine, literalStackBase, 2)).To(Equal(int32(42)))
	})

	It("scenario 3: arithmetic precedence", func() {
		machine, _, err := oberon.CompileAndRun(
			"MODULE T; VAR x,y: INTEGER; BEGIN x:=40+2; y:=((x+4)*2)/4-(10/2) END T.",
			literalStackBase, 50)
		Expect(err).NotTo(HaveOccurred())

		Expect(wordAt(machine, literalStackBase, 0)).To(Equal(int32(0)))
		Expect(wordAt(machine, literalStackBase, 1)).To(Equal(int32(42)))
		Expect(wordAt(machine, literalStackBase, 2)).To(Equal(int32(18)))
	})

	It("scenario 4: if-then-else, false branch", func() {
		machine, _, err := oberon.CompileAndRun(
			"MODULE T; VAR x: INTEGER; BEGIN IF 0 = 1 THEN x:=1 ELSE x:=2 END END T.",
			literalStackBase, 50)
		Expect(err).NotTo(HaveOccurred())

		Expect(wordAt(machine, literalStackBase, 0)).To(Equal(int32(0)))
		Expect(wordAt(machine, literalStackBase, 1)).To(Equal(int32(2)))
	})

	It("scenario 5: while loop", func() {
		machine, _, err := oberon.CompileAndRun(
			"MODULE T; VAR x: INTEGER; BEGIN x:=0; WHILE x<2 DO x:=x+1 END END T.",
			literalStackBase, 50)
		Expect(err).NotTo(HaveOccurred())

		Expect(wordAt(machine, literalStackBase, 0)).To(Equal(int32(0)))
		Expect(wordAt(machine, literalStackBase, 1)).To(Equal(int32(2)))
	})

	It("scenario 6: array writes with variable index", func() {
		machine, _, err := oberon.CompileAndRun(
			"MODULE T; VAR i: INTEGER; a: ARRAY 3 OF INTEGER; "+
				"BEGIN i:=0; a[i]:=5; i:=i+1; a[i]:=6; i:=i+1; a[i]:=7 END T.",
			literalStackBase, 50)
		Expect(err).NotTo(HaveOccurred())

		Expect(wordAt(machine, literalStackBase, 0)).To(Equal(int32(0)))
		Expect(wordAt(machine, literalStackBase, 1)).To(Equal(int32(2)))
		Expect(wordAt(machine, literalStackBase, 2)).To(Equal(int32(5)))
		Expect(wordAt(machine, literalStackBase, 3)).To(Equal(int32(6)))
		Expect(wordAt(machine, literalStackBase, 4)).To(Equal(int32(7)))
	})
})
