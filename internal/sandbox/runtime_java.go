package sandbox

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"code-translator/internal/domain/model"
)

// javaWrapper is the class bare methods are placed in; the signature
// extractor uses the same name.
const javaWrapper = "Translated"

// CtMain resolves the method reflectively, so static and instance methods
// and any scalar parameter spelling work without code generation per type.
const javaMain = `import java.lang.reflect.*;
import java.util.*;

public class CtMain {
    static final String CLASS = %s;
    static final String NAME = %s;

    public static void main(String[] argv) {
        try {
            Class<?> cls = Class.forName(CLASS);
            Method m = null;
            for (Method c : cls.getDeclaredMethods()) {
                if (c.getName().equals(NAME) && c.getParameterCount() == argv.length) { m = c; break; }
            }
            if (m == null) { System.out.println("__CT_ERROR__ NoSuchMethodError: " + NAME); return; }
            m.setAccessible(true);
            Class<?>[] types = m.getParameterTypes();
            Object[] args = new Object[argv.length];
            for (int i = 0; i < argv.length; i++) args[i] = convert(types[i], argv[i]);
            Object target = null;
            if (!Modifier.isStatic(m.getModifiers())) {
                Constructor<?> k = cls.getDeclaredConstructor();
                k.setAccessible(true);
                target = k.newInstance();
            }
            Object out = m.invoke(target, args);
            StringBuilder sb = new StringBuilder();
            emit(sb, out);
            System.out.println("__CT_RESULT__ " + sb);
        } catch (InvocationTargetException e) {
            Throwable c = e.getCause() == null ? e : e.getCause();
            System.out.println("__CT_ERROR__ " + c.getClass().getSimpleName() + ": " + c.getMessage());
        } catch (Throwable t) {
            System.out.println("__CT_ERROR__ " + t.getClass().getSimpleName() + ": " + t.getMessage());
        }
        System.out.flush();
    }

    static double real(String s) {
        switch (s) {
            case "nan": return Double.NaN;
            case "inf": return Double.POSITIVE_INFINITY;
            case "-inf": return Double.NEGATIVE_INFINITY;
        }
        return Double.parseDouble(s);
    }

    static Object convert(Class<?> t, String s) {
        if (t == long.class || t == Long.class) return Long.parseLong(s);
        if (t == int.class || t == Integer.class) return Integer.parseInt(s);
        if (t == short.class || t == Short.class) return Short.parseShort(s);
        if (t == byte.class || t == Byte.class) return Byte.parseByte(s);
        if (t == double.class || t == Double.class) return real(s);
        if (t == float.class || t == Float.class) return (float) real(s);
        if (t == boolean.class || t == Boolean.class) return s.equals("1") || s.equalsIgnoreCase("true");
        if (t == char.class || t == Character.class) return s.isEmpty() ? '\0' : s.charAt(0);
        if (t == java.math.BigInteger.class) return new java.math.BigInteger(s);
        if (t == java.math.BigDecimal.class) return new java.math.BigDecimal(s);
        return s;
    }

    static void str(StringBuilder sb, String s) {
        sb.append('"');
        for (int i = 0; i < s.length(); i++) {
            char c = s.charAt(i);
            if (c == '"' || c == '\\') sb.append('\\').append(c);
            else if (c < 0x20) sb.append(String.format("\\u%%04x", (int) c));
            else sb.append(c);
        }
        sb.append('"');
    }

    static void seq(StringBuilder sb, Iterable<?> items) {
        sb.append('[');
        boolean first = true;
        for (Object x : items) {
            if (!first) sb.append(',');
            first = false;
            emit(sb, x);
        }
        sb.append(']');
    }

    static void emit(StringBuilder sb, Object v) {
        if (v == null) { sb.append("null"); return; }
        if (v instanceof Boolean) { sb.append(v); return; }
        if (v instanceof Double || v instanceof Float) {
            double d = ((Number) v).doubleValue();
            if (Double.isNaN(d)) { sb.append("{\"__float__\":\"nan\"}"); return; }
            if (Double.isInfinite(d)) { sb.append(d > 0 ? "{\"__float__\":\"inf\"}" : "{\"__float__\":\"-inf\"}"); return; }
            sb.append(Double.toString(d));
            return;
        }
        if (v instanceof java.math.BigDecimal) {
            String s = ((java.math.BigDecimal) v).toPlainString();
            sb.append(s.contains(".") ? s : s + ".0");
            return;
        }
        if (v instanceof Number) { sb.append(v.toString()); return; }
        if (v instanceof Character || v instanceof CharSequence) { str(sb, v.toString()); return; }
        if (v instanceof Set) { sb.append("{\"__set__\":"); seq(sb, (Set<?>) v); sb.append('}'); return; }
        if (v instanceof Iterable) { seq(sb, (Iterable<?>) v); return; }
        if (v instanceof Map) {
            sb.append('{');
            boolean first = true;
            for (Map.Entry<?, ?> e : ((Map<?, ?>) v).entrySet()) {
                if (!first) sb.append(',');
                first = false;
                str(sb, String.valueOf(e.getKey()));
                sb.append(':');
                emit(sb, e.getValue());
            }
            sb.append('}');
            return;
        }
        if (v instanceof char[]) { str(sb, new String((char[]) v)); return; }
        if (v.getClass().isArray()) {
            List<Object> items = new ArrayList<>();
            for (int i = 0; i < Array.getLength(v); i++) items.add(Array.get(v, i));
            seq(sb, items);
            return;
        }
        str(sb, v.toString());
    }
}
`

var (
	javaImportRe = regexp.MustCompile(`(?m)^\s*import\s+[\w.*\s]+;\s*$`)
	javaPublicRe = regexp.MustCompile(`(?m)^\s*public\s+(?:final\s+|abstract\s+)*class\s+(\w+)`)
)

type javaRuntime struct {
	javac, java string
	heapMB      int
}

func (r javaRuntime) tools() []string    { return []string{r.javac, r.java} }
func (r javaRuntime) memoryByFlag() bool { return true }

func (r javaRuntime) sources(code string, sig model.Signature) (map[string]string, error) {
	if err := checkScalarParams(model.LangJava, sig); err != nil {
		return nil, err
	}
	class := sig.Receiver
	files := map[string]string{}
	if class == "" {
		class = javaWrapper
		// hoist imports out of the wrapper class
		imports := javaImportRe.FindAllString(code, -1)
		body := javaImportRe.ReplaceAllString(code, "")
		files[class+".java"] = strings.Join(imports, "\n") + "\npublic class " + class + " {\n" + body + "\n}\n"
	} else {
		file := class
		if m := javaPublicRe.FindStringSubmatch(code); m != nil {
			file = m[1]
		}
		files[file+".java"] = code
	}
	files["CtMain.java"] = fmt.Sprintf(javaMain, strconv.Quote(class), strconv.Quote(sig.Name))
	return files, nil
}

func (r javaRuntime) compile(_ model.Signature, files []string) [][]string {
	return [][]string{append([]string{r.javac, "-nowarn", "-encoding", "UTF-8", "-d", "."}, files...)}
}

func (r javaRuntime) invocation(_ model.Signature, args []model.Value) ([]string, []byte, error) {
	vals, err := argvValues(args)
	if err != nil {
		return nil, nil, err
	}
	argv := []string{r.java, "-XX:+UseSerialGC", "-Xss64m", "-cp", "."}
	if r.heapMB > 0 {
		argv = append(argv, fmt.Sprintf("-Xmx%dm", r.heapMB))
	}
	return append(append(argv, "CtMain"), vals...), nil, nil
}
